package browser

import (
	"strings"
	"testing"
)

func TestFindAllScriptQuotesSelector(t *testing.T) {
	script, err := findAllScript(`a[href*="event"]`)
	if err != nil {
		t.Fatalf("findAllScript: %v", err)
	}
	if !strings.Contains(script, `document.querySelectorAll("a[href*=\"event\"]")`) {
		t.Errorf("selector not JSON-quoted: %s", script)
	}
}
