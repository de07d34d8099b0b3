package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justyntemme/webby-pager/internal/content"
	"github.com/justyntemme/webby-pager/pkg/models"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	for _, k := range []string{"WEBBY_URL", "WEBBY_TOKEN", "WEBBY_READ_MODE", "WEBBY_SWITCH_COOLDOWN", "WEBBY_TEXT_SCALE"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.GetTextScale() != DefaultTextScale {
		t.Errorf("TextScale = %v", cfg.GetTextScale())
	}
	if cfg.Mode() != models.ReadModeCurl {
		t.Errorf("Mode = %v", cfg.Mode())
	}
	if cfg.IsAuthenticated() {
		t.Error("fresh config should not be authenticated")
	}
}

func TestSaveAndReload(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetToken("abc"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetReadMode(models.ReadModeScroll); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetTextScale(1.5); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.Path()); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	again, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if again.Token != "abc" || again.Mode() != models.ReadModeScroll || again.GetTextScale() != 1.5 {
		t.Errorf("reloaded %+v", again)
	}

	if err := again.ClearToken(); err != nil {
		t.Fatal(err)
	}
	if again.IsAuthenticated() {
		t.Error("token should be cleared")
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("WEBBY_URL", "http://books.local:9000")
	t.Setenv("WEBBY_TOKEN", "envtok")
	t.Setenv("WEBBY_READ_MODE", "scroll")
	t.Setenv("WEBBY_SWITCH_COOLDOWN", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "http://books.local:9000" || cfg.Token != "envtok" {
		t.Errorf("cfg %+v", cfg)
	}
	if cfg.Mode() != models.ReadModeScroll {
		t.Errorf("Mode = %v", cfg.Mode())
	}
	if cfg.SwitchCooldown() != 250*time.Millisecond {
		t.Errorf("SwitchCooldown = %v", cfg.SwitchCooldown())
	}

	t.Setenv("WEBBY_SWITCH_COOLDOWN", "400")
	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SwitchCooldown() != 400*time.Millisecond {
		t.Errorf("SwitchCooldown = %v", cfg.SwitchCooldown())
	}

	t.Setenv("WEBBY_TEXT_SCALE", "1.5")
	if cfg, err = Load(); err != nil {
		t.Fatal(err)
	}
	if cfg.GetTextScale() != 1.5 {
		t.Errorf("TextScale = %v, want 1.5", cfg.GetTextScale())
	}

	t.Setenv("WEBBY_TEXT_SCALE", "9")
	if cfg, err = Load(); err != nil {
		t.Fatal(err)
	}
	if cfg.GetTextScale() != MaxTextScale {
		t.Errorf("TextScale = %v, want clamped to %v", cfg.GetTextScale(), MaxTextScale)
	}
}

func TestEnvErrors(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"WEBBY_READ_MODE", "sideways"},
		{"WEBBY_SWITCH_COOLDOWN", "soon"},
		{"WEBBY_TEXT_SCALE", "big"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s should fail", tt.key, tt.value)
			}
		})
	}
}

func TestBrokenFile(t *testing.T) {
	dir := isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path() != filepath.Join(dir, configDirName, configFileName) {
		t.Fatalf("Path = %s", cfg.Path())
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path()), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Path(), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("broken config should fail to load")
	}

	if err := os.WriteFile(cfg.Path(), []byte(`{"text_scale": 99, "switch_cooldown_ms": -5, "server_url": ""}`), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GetTextScale() != MaxTextScale || cfg.SwitchCooldown() != 0 || cfg.ServerURL != DefaultServerURL {
		t.Errorf("not clamped: %+v", cfg)
	}
}

func TestTextScaleClamp(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		in, want float64
	}{
		{0.1, MinTextScale},
		{1.2000000001, 1.2},
		{9, MaxTextScale},
	}
	for _, tt := range tests {
		if err := cfg.SetTextScale(tt.in); err != nil {
			t.Fatal(err)
		}
		if got := cfg.GetTextScale(); got != tt.want {
			t.Errorf("SetTextScale(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLayoutSpec(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	margin := cfg.Layout.SideMargin

	tests := []struct {
		name      string
		scale     float64
		width     int
		wantWidth float64
	}{
		{"full width", 1, 80, 80},
		{"double scale halves lines", 2, 84, (84-2*margin)/2 + 2*margin},
		{"never below minimum", 3, 40, minContentWidth + 2*margin},
		{"never wider than the screen", 0.5, 60, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.TextScale = tt.scale
			spec := cfg.LayoutSpec(tt.width, 20)
			if spec.ViewportWidth != tt.wantWidth {
				t.Errorf("ViewportWidth = %v, want %v", spec.ViewportWidth, tt.wantWidth)
			}
			if spec.ViewportHeight != 20 || spec.FontSize != 1 {
				t.Errorf("spec %+v", spec)
			}
		})
	}

	cfg.TextScale = 1
	if cfg.LayoutSpec(80, 20) != cfg.LayoutSpec(80, 20) {
		t.Error("equal settings should give equal specs")
	}
}

func TestRecentlyRead(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < MaxRecentlyRead+3; i++ {
		if err := cfg.AddRecentlyRead(string(rune('a'+i)), "t"); err != nil {
			t.Fatal(err)
		}
	}
	if err := cfg.AddRecentlyRead("e", "t"); err != nil {
		t.Fatal(err)
	}
	ids := cfg.GetRecentlyReadIDs()
	if len(ids) != MaxRecentlyRead || ids[0] != "e" {
		t.Errorf("ids = %v", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate %s in %v", id, ids)
		}
		seen[id] = true
	}
}

func TestBookmarks(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	add := func(book string, ch, off int) {
		t.Helper()
		if err := cfg.AddBookmark(Bookmark{BookID: book, ChapterIndex: ch, CharOffset: off}); err != nil {
			t.Fatal(err)
		}
	}
	add("b1", 2, 40)
	add("b1", 0, 10)
	add("b1", 2, 5)
	add("b1", 2, 40)
	add("b2", 0, 0)

	got := cfg.GetBookmarksForBook("b1")
	if len(got) != 3 {
		t.Fatalf("got %d bookmarks", len(got))
	}
	if got[0].ChapterIndex != 0 || got[1].CharOffset != 5 || got[2].CharOffset != 40 {
		t.Errorf("order %+v", got)
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Errorf("bookmark missing id or time: %+v", got[0])
	}

	if err := cfg.DeleteBookmark(got[1].ID); err != nil {
		t.Fatal(err)
	}
	again, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if n := len(again.GetBookmarksForBook("b1")); n != 2 {
		t.Errorf("after delete %d bookmarks", n)
	}
	if n := len(again.GetBookmarksForBook("b2")); n != 1 {
		t.Errorf("b2 has %d bookmarks", n)
	}
}

func TestLocalPositions(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Position("x") != nil {
		t.Error("unknown book should have no position")
	}
	if err := cfg.SavePosition(models.ReadingPosition{BookID: "x", ChapterIndex: 3, CharOffset: 17}); err != nil {
		t.Fatal(err)
	}
	again, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	pos := again.Position("x")
	if pos == nil || pos.ChapterIndex != 3 || pos.CharOffset != 17 || pos.UpdatedAt.IsZero() {
		t.Errorf("position %+v", pos)
	}
}

func TestNormalizer(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	cfg.ReplaceRules = []content.ReplaceRule{{Pattern: "colour", Replacement: "color"}}
	n, err := cfg.Normalizer()
	if err != nil {
		t.Fatal(err)
	}
	if got := n.Apply("a colour"); got != "a color" {
		t.Errorf("Apply = %q", got)
	}

	cfg.ReplaceRules = []content.ReplaceRule{{Pattern: "(", IsRegex: true}}
	if _, err := cfg.Normalizer(); err == nil {
		t.Error("bad regex should fail")
	}
}
