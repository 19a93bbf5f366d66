package systemconfig

import (
	"testing"

	config "github.com/axpcore/ev6/config/configparser"
	"github.com/axpcore/ev6/system"
)

func reset() {
	current = system.DefaultConfig()
}

func TestSetCPUCount(t *testing.T) {
	reset()
	if err := setCPUCount(config.Option{Value: "4"}); err != nil {
		t.Fatalf("setCPUCount() = %v", err)
	}
	if Config().CPUCount != 4 {
		t.Errorf("CPUCount = %d, want 4", Config().CPUCount)
	}
}

func TestSetMemorySize(t *testing.T) {
	reset()
	if err := setMemorySize(config.Option{Value: "256M"}); err != nil {
		t.Fatalf("setMemorySize() = %v", err)
	}
	if want := uint64(256 << 20); Config().MemorySize != want {
		t.Errorf("MemorySize = %d, want %d", Config().MemorySize, want)
	}
}

func TestSetPALBaseHex(t *testing.T) {
	reset()
	if err := setPALBase(config.Option{Value: "0x30000000"}); err != nil {
		t.Fatalf("setPALBase() = %v", err)
	}
	if want := uint64(0x30000000); Config().PALBase != want {
		t.Errorf("PALBase = %#x, want %#x", Config().PALBase, want)
	}
}

func TestSetTLBPolicyRejectsUnknown(t *testing.T) {
	reset()
	if err := setTLBPolicy(config.Option{Value: "bogus"}); err == nil {
		t.Fatal("expected an error for an unknown TLB policy")
	}
}

func TestSetTLBPolicyAccepted(t *testing.T) {
	reset()
	if err := setTLBPolicy(config.Option{Value: "clock"}); err != nil {
		t.Fatalf("setTLBPolicy() = %v", err)
	}
	if Config().TLBPolicy != system.TLBPolicyClock {
		t.Errorf("TLBPolicy = %v, want %v", Config().TLBPolicy, system.TLBPolicyClock)
	}
}
