package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func testOutput(buf *bytes.Buffer, jsonMode, color bool) *Output {
	return &Output{writer: buf, jsonMode: jsonMode, colorEnabled: color}
}

func TestJSONOutputRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	output := testOutput(&buf, true, false)

	if err := output.JSON(map[string]interface{}{"symbol": "NIFTY", "premium": 123.45}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["symbol"] != "NIFTY" {
		t.Errorf("symbol = %v, want NIFTY", decoded["symbol"])
	}
}

func TestColoredOutputDisabledWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	output := testOutput(&buf, false, false)

	output.Success("done")
	output.Error("broken")

	got := buf.String()
	if strings.Contains(got, "\033[") {
		t.Errorf("expected no ANSI codes, got %q", got)
	}
	if !strings.Contains(got, "done") || !strings.Contains(got, "broken") {
		t.Errorf("messages missing from output: %q", got)
	}
}

func TestPnLColorBySign(t *testing.T) {
	output := testOutput(&bytes.Buffer{}, false, true)

	if output.PnLColor(100) != ColorGreen {
		t.Error("profit should color green")
	}
	if output.PnLColor(-100) != ColorRed {
		t.Error("loss should color red")
	}
	if output.PnLColor(0) != ColorWhite {
		t.Error("flat should color white")
	}
}

func TestTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	output := testOutput(&buf, false, false)

	table := NewTable(output, "Strategy", "Sharpe")
	table.AddRow("MA_Crossover", "1.20")
	table.AddRow("Breakout", "0.85")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + separator + 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	// Sharpe values land in the same column on every row.
	first := strings.Index(lines[2], "1.20")
	second := strings.Index(lines[3], "0.85")
	if first != second {
		t.Errorf("columns misaligned: %d vs %d\n%s", first, second, buf.String())
	}
}

func TestTableWidthIgnoresColorCodes(t *testing.T) {
	var buf bytes.Buffer
	output := testOutput(&buf, false, true)

	table := NewTable(output, "P&L")
	table.AddRow(output.Green("+₹1,000.00"))
	table.AddRow("-₹500.00")
	table.Render()

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		plain := stripANSI(line)
		if len([]rune(plain)) > len([]rune("+₹1,000.00")) {
			t.Errorf("row padded against colored width: %q", plain)
		}
	}
}

func TestStripANSI(t *testing.T) {
	colored := ColorBold + ColorGreen + "NIFTY" + ColorReset
	if got := stripANSI(colored); got != "NIFTY" {
		t.Errorf("stripANSI = %q, want NIFTY", got)
	}
}
