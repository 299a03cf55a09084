package classify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

const testModel = `{
  "labels": ["real", "fake"],
  "bias": [0.0, 0.0],
  "weights": {
    "scandal": [-0.5, 0.8],
    "official": [0.7, -0.4]
  }
}`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadModelValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid", testModel, false},
		{"not json", "nope", true},
		{"one label", `{"labels":["a"],"bias":[0],"weights":{}}`, true},
		{"bias mismatch", `{"labels":["a","b"],"bias":[0],"weights":{}}`, true},
		{"row mismatch", `{"labels":["a","b"],"bias":[0,0],"weights":{"x":[1]}}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadModel(writeModel(t, tc.content))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestPredict(t *testing.T) {
	m, err := LoadModel(writeModel(t, testModel))
	if err != nil {
		t.Fatal(err)
	}

	label, conf, err := m.Predict("Shocking celebrity SCANDAL revealed")
	if err != nil {
		t.Fatal(err)
	}
	if label != "fake" {
		t.Fatalf("label = %q, want fake", label)
	}
	if conf <= 0.5 || conf > 1 {
		t.Fatalf("confidence = %v, want in (0.5, 1]", conf)
	}

	label, _, err = m.Predict("official statement")
	if err != nil {
		t.Fatal(err)
	}
	if label != "real" {
		t.Fatalf("label = %q, want real", label)
	}

	if _, _, err := m.Predict("   "); err == nil {
		t.Fatal("expected error for blank text")
	}
}

func TestHandleResults(t *testing.T) {
	svc := New(Config{ModelPath: writeModel(t, testModel)}, logx.Nop())
	ctx := context.Background()

	res, err := svc.Handle(ctx, map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if res["message"] != "No text provided" {
		t.Fatalf("res = %v", res)
	}

	res, err = svc.Handle(ctx, map[string]any{"text": 42})
	if err != nil {
		t.Fatal(err)
	}
	if res["error"] != "text must be a string" {
		t.Fatalf("res = %v", res)
	}

	res, err = svc.Handle(ctx, map[string]any{"text": "scandal"})
	if err != nil {
		t.Fatal(err)
	}
	if res["prediction"] != "fake" {
		t.Fatalf("res = %v", res)
	}
	if _, ok := res["confidence"].(float64); !ok {
		t.Fatalf("confidence missing or wrong type: %v", res)
	}
}

func TestHandleWithoutModel(t *testing.T) {
	svc := New(Config{}, logx.Nop())

	res, err := svc.Handle(context.Background(), map[string]any{"text": "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if res["error"] != "Model not loaded" {
		t.Fatalf("res = %v", res)
	}
}

func TestApplyReloadsModel(t *testing.T) {
	svc := New(Config{}, logx.Nop())
	if res, _ := svc.Handle(context.Background(), map[string]any{"text": "x"}); res["error"] != "Model not loaded" {
		t.Fatalf("res = %v", res)
	}

	svc.Apply(Config{ModelPath: writeModel(t, testModel)})
	res, _ := svc.Handle(context.Background(), map[string]any{"text": "scandal"})
	if res["prediction"] != "fake" {
		t.Fatalf("res = %v, model should be live after Apply", res)
	}
}
