package httpc

import (
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	c := NewClient(5 * time.Second)
	if c.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", c.Timeout)
	}
	if c.Transport == nil {
		t.Error("Expected a configured transport")
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	if got := NewClient(0).Timeout; got != DefaultTimeout {
		t.Errorf("Expected default timeout %v, got %v", DefaultTimeout, got)
	}
}
