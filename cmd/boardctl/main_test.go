package main

import (
	"bytes"
	"strings"
	"testing"

	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/metrics"

	"github.com/google/uuid"
)

func TestRootHasSubcommands(t *testing.T) {
	cmd := newRootCmd()
	subs := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subs[sub.Name()] = true
	}
	for _, name := range []string{"version", "stages", "metrics", "reorder", "seed-reasons", "migrate"} {
		if !subs[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestArgumentErrorsNeedNoDatabase(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"stages without board", []string{"stages"}, "accepts 1 arg"},
		{"stages bad board", []string{"stages", "nope"}, "invalid board id"},
		{"reorder bad stage", []string{"reorder", uuid.NewString(), "nope"}, "invalid stage id"},
		{"migrate with args", []string{"migrate", "extra"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCmd()
			var buf bytes.Buffer
			root.SetOut(&buf)
			root.SetErr(&buf)
			root.SetArgs(tt.args)

			err := root.Execute()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestVersion(t *testing.T) {
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "boardctl dev") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintMetrics(t *testing.T) {
	intake, won := uuid.New(), uuid.New()
	stages := []domain.Stage{
		{ID: won, Name: "Won", OrderIndex: domain.WonOrderIndex, Role: domain.RoleWon},
		{ID: intake, Name: "Lead", OrderIndex: domain.IntakeOrderIndex, Role: domain.RoleIntake},
	}
	m := metrics.BoardMetrics{
		PerStage: map[uuid.UUID]metrics.StageMetrics{
			intake: {Count: 2, TotalValueCents: 150050},
			won:    {Count: 1, TotalValueCents: 99},
		},
		TotalLeads:      3,
		TotalValueCents: 150149,
		Won:             1,
		Active:          2,
		ConversionRate:  1.0 / 3.0,
	}

	var buf bytes.Buffer
	if err := printMetrics(&buf, stages, m); err != nil {
		t.Fatalf("printMetrics: %v", err)
	}
	out := buf.String()
	if strings.Index(out, "Lead") > strings.Index(out, "Won") {
		t.Fatalf("stages should print in board order:\n%s", out)
	}
	for _, want := range []string{"1500.50", "0.99", "total 3 leads, 1501.49", "conversion 33.3%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestFormatCents(t *testing.T) {
	tests := map[int64]string{0: "0.00", 5: "0.05", 12345: "123.45", -250: "-2.50"}
	for in, want := range tests {
		if got := formatCents(in); got != want {
			t.Errorf("formatCents(%d) = %q, want %q", in, got, want)
		}
	}
}
