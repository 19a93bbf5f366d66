package debugconfig

import (
	"testing"

	config "github.com/axpcore/ev6/config/configparser"
	"github.com/axpcore/ev6/util/debug"
)

func TestTraceKeywordEnablesCategories(t *testing.T) {
	if err := setTrace(config.Option{Value: "dat", Extra: []string{"tlb", "pal"}}); err != nil {
		t.Fatalf("setTrace() = %v", err)
	}
	if !debug.Enabled(debug.DAT) || !debug.Enabled(debug.TLB) || !debug.Enabled(debug.PAL) {
		t.Error("expected DAT, TLB and PAL all enabled")
	}
}

func TestTraceKeywordRejectsUnknownCategory(t *testing.T) {
	if err := setTrace(config.Option{Value: "bogus"}); err == nil {
		t.Error("expected an error for an unknown trace category")
	}
}
