package app

import (
	"testing"

	"go.uber.org/fx"
)

func TestModuleGraphResolves(t *testing.T) {
	p := Params{
		SessionName: "test",
		UserID:      "u1",
		ReceiverID:  "u2",
		APIURL:      "http://127.0.0.1:9",
		PushURL:     "ws://127.0.0.1:9/ws",
	}
	if err := fx.ValidateApp(Module(p)); err != nil {
		t.Fatalf("dependency graph does not resolve: %v", err)
	}
}
