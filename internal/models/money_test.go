package models

import (
	"encoding/json"
	"testing"
)

func TestMoneyRoundsToTwoDecimals(t *testing.T) {
	total, err := ParseMoney(" 2500.004 ")
	if err != nil {
		t.Fatalf("parse money failed: %v", err)
	}
	if total.String() != "2500.00" {
		t.Fatalf("unexpected amount: %s", total.String())
	}
	if !total.Equal(NewMoneyFromInt(2500)) {
		t.Fatalf("expected equal money values")
	}
}

func TestMoneyJSONAcceptsStringAndNumber(t *testing.T) {
	var fromString Money
	if err := json.Unmarshal([]byte(`"1500"`), &fromString); err != nil {
		t.Fatalf("unmarshal string failed: %v", err)
	}
	var fromNumber Money
	if err := json.Unmarshal([]byte(`1500`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	if !fromString.Equal(fromNumber) {
		t.Fatalf("string and number should decode equally: %s vs %s", fromString, fromNumber)
	}
	raw, err := json.Marshal(fromString)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `"1500.00"` {
		t.Fatalf("unexpected json: %s", string(raw))
	}
}

func TestParseMoneyRejectsGarbage(t *testing.T) {
	if _, err := ParseMoney("12abc"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestJSONScanAcceptsTextColumns(t *testing.T) {
	var j JSON
	if err := j.Scan(`{"upgrade_tier":"Nexus"}`); err != nil {
		t.Fatalf("scan string failed: %v", err)
	}
	if j["upgrade_tier"] != "Nexus" {
		t.Fatalf("unexpected scan result: %+v", j)
	}
}
