package metrics

import (
	"testing"
	"time"
)

func resetHealthChecker() {
	healthChecker = &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

func TestRegisterComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("recordstore", true, "mmap open")

	if len(healthChecker.components) != 1 {
		t.Errorf("expected 1 component, got %d", len(healthChecker.components))
	}

	comp := healthChecker.components["recordstore"]
	if !comp.Healthy {
		t.Error("component should be healthy")
	}
	if comp.Message != "mmap open" {
		t.Errorf("expected message 'mmap open', got '%s'", comp.Message)
	}
}

func TestGetHealth_AllHealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("recordstore", true, "")
	RegisterComponent("catalog", true, "")

	health := GetHealth()

	if health.Status != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", health.Status)
	}
	if len(health.Components) != 2 {
		t.Errorf("expected 2 components, got %d", len(health.Components))
	}
}

func TestGetHealth_OneUnhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("recordstore", true, "")
	RegisterComponent("propstore", false, "mmap remap failed")

	health := GetHealth()

	if health.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got '%s'", health.Status)
	}
	if health.Components["propstore"] != "unhealthy: mmap remap failed" {
		t.Errorf("unexpected propstore status: %s", health.Components["propstore"])
	}
}

func TestUpdateComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("catalog", true, "ok")
	UpdateComponent("catalog", false, "bbolt env closed")

	comp := healthChecker.components["catalog"]
	if comp.Healthy {
		t.Error("component should be unhealthy after update")
	}
	if comp.Message != "bbolt env closed" {
		t.Errorf("expected message 'bbolt env closed', got '%s'", comp.Message)
	}
}

func TestGetHealth_UptimeNonZero(t *testing.T) {
	resetHealthChecker()
	time.Sleep(5 * time.Millisecond)

	health := GetHealth()
	if health.Uptime == "" {
		t.Error("expected non-empty uptime string")
	}
}
