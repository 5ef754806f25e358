package app

import (
	"context"
	"errors"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/provider"
	"github.com/vtx-referral/internal/router"
	"github.com/vtx-referral/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	// 资源服务最先登记，停止时最后关闭
	services := []Service{newResourceService(container)}

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	// all 模式下未启用队列时只启动 HTTP，通知改为同步发送
	if mode == ModeWorker || (mode == ModeAll && cfg.Queue.Enabled) {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, cfg.Referral, consumer)
		if err != nil {
			_ = container.Close()
			return nil, err
		}
		services = append(services, workerService)
	} else if mode == ModeAll {
		logger.Warnw("app_worker_skipped", "reason", "queue_disabled")
	}

	if len(services) == 1 {
		_ = container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", listenAddr(opts.Config.Server), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}

// resourceService 持有容器中的长连接，随运行器一起停止
type resourceService struct {
	closer interface{ Close() error }
}

func newResourceService(closer interface{ Close() error }) *resourceService {
	return &resourceService{closer: closer}
}

func (s *resourceService) Name() string { return "resources" }

func (s *resourceService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *resourceService) Stop(context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
