package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/justyntemme/webby-pager/internal/content"
	"github.com/justyntemme/webby-pager/internal/layout"
	"github.com/justyntemme/webby-pager/pkg/models"
)

const (
	DefaultServerURL = "http://localhost:8080"
	configFileName   = "config.json"
	configDirName    = "webby-pager"
	MaxRecentlyRead  = 10 // Maximum number of recently read books to track
	MaxBookmarks     = 200
)

// Text scale bounds. A larger scale narrows lines to simulate bigger text.
const (
	DefaultTextScale = 1.0
	MinTextScale     = 0.5
	MaxTextScale     = 3.0
	TextScaleStep    = 0.1
)

// minContentWidth is the narrowest readable line in cells
const minContentWidth = 20

// RecentlyReadEntry represents a recently read book
type RecentlyReadEntry struct {
	BookID   string    `json:"book_id"`
	Title    string    `json:"title"`
	OpenedAt time.Time `json:"opened_at"`
}

// Bookmark marks a character offset in a chapter
type Bookmark struct {
	ID            string    `json:"id"`
	BookID        string    `json:"book_id"`
	BookTitle     string    `json:"book_title"`
	ChapterIndex  int       `json:"chapter_index"`
	ChapterTitle  string    `json:"chapter_title"`
	CharOffset    int       `json:"char_offset"`
	SentenceIndex int       `json:"sentence_index"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Layout holds the reader's page geometry in terminal cells
type Layout struct {
	LineSpacing      float64 `json:"line_spacing"`
	ParagraphSpacing float64 `json:"paragraph_spacing"`
	SideMargin       float64 `json:"side_margin"`
	TopInset         float64 `json:"top_inset"`
	BottomInset      float64 `json:"bottom_inset"`
	PagePadding      float64 `json:"page_padding"`
	Indent           string  `json:"indent"`
}

// DefaultLayout returns the layout used when the config has none
func DefaultLayout() Layout {
	d := layout.DefaultSpec()
	return Layout{
		LineSpacing:      d.LineSpacing,
		ParagraphSpacing: d.ParagraphSpacing,
		SideMargin:       d.SideMargin,
		TopInset:         d.TopInset,
		BottomInset:      d.BottomInset,
		PagePadding:      d.PagePadding,
		Indent:           d.Indent,
	}
}

// Config holds the application configuration
type Config struct {
	ServerURL    string              `json:"server_url"`
	Token        string              `json:"token,omitempty"`
	Username     string              `json:"username,omitempty"`
	RecentlyRead []RecentlyReadEntry `json:"recently_read,omitempty"`

	// Reader settings
	TextScale        float64               `json:"text_scale"`
	ReadMode         string                `json:"read_mode"`
	Layout           Layout                `json:"layout"`
	ReplaceRules     []content.ReplaceRule `json:"replace_rules,omitempty"`
	SwitchCooldownMS int                   `json:"switch_cooldown_ms"`

	Bookmarks []Bookmark `json:"bookmarks,omitempty"`
	// Positions of books read without a server, keyed by book ID
	Positions map[string]models.ReadingPosition `json:"local_positions,omitempty"`

	// Path to config file (not persisted)
	path string `json:"-"`
}

// Load loads configuration from the config file and applies environment
// overrides
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerURL: DefaultServerURL,
		TextScale: DefaultTextScale,
		ReadMode:  models.ReadModeCurl.String(),
		Layout:    DefaultLayout(),
		path:      configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	cfg.path = configPath
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.ServerURL = envOr("WEBBY_URL", c.ServerURL)
	c.Token = envOr("WEBBY_TOKEN", c.Token)
	c.ReadMode = envOr("WEBBY_READ_MODE", c.ReadMode)
	if _, err := models.ParseReadMode(c.ReadMode); err != nil {
		return fmt.Errorf("WEBBY_READ_MODE: %w", err)
	}
	d, err := envDuration("WEBBY_SWITCH_COOLDOWN", c.SwitchCooldown())
	if err != nil {
		return err
	}
	c.SwitchCooldownMS = int(d / time.Millisecond)
	scale, err := envFloat("WEBBY_TEXT_SCALE", c.TextScale)
	if err != nil {
		return err
	}
	c.TextScale = scale
	return nil
}

// normalize clamps settings that a hand-edited file may have broken
func (c *Config) normalize() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.TextScale == 0 || math.IsNaN(c.TextScale) {
		c.TextScale = DefaultTextScale
	}
	c.TextScale = clampScale(c.TextScale)
	if c.Layout.LineSpacing < 0 {
		c.Layout.LineSpacing = 0
	}
	if c.Layout.ParagraphSpacing < 0 {
		c.Layout.ParagraphSpacing = 0
	}
	if c.Layout.SideMargin < 0 {
		c.Layout.SideMargin = 0
	}
	if c.SwitchCooldownMS < 0 {
		c.SwitchCooldownMS = 0
	}
}

// Save persists the configuration to disk
func (c *Config) Save() error {
	// Ensure directory exists
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// Path returns the config file location
func (c *Config) Path() string {
	return c.path
}

// SetToken updates the token and saves
func (c *Config) SetToken(token string) error {
	c.Token = token
	return c.Save()
}

// ClearToken removes the token and saves
func (c *Config) ClearToken() error {
	c.Token = ""
	c.Username = ""
	return c.Save()
}

// IsAuthenticated returns true if a token is stored
func (c *Config) IsAuthenticated() bool {
	return c.Token != ""
}

// AddRecentlyRead adds a book to the recently read list
func (c *Config) AddRecentlyRead(bookID, title string) error {
	// Remove existing entry for this book if present
	newList := make([]RecentlyReadEntry, 0, MaxRecentlyRead)
	for _, entry := range c.RecentlyRead {
		if entry.BookID != bookID {
			newList = append(newList, entry)
		}
	}

	// Add new entry at the front
	entry := RecentlyReadEntry{
		BookID:   bookID,
		Title:    title,
		OpenedAt: time.Now(),
	}
	c.RecentlyRead = append([]RecentlyReadEntry{entry}, newList...)

	// Trim to max size
	if len(c.RecentlyRead) > MaxRecentlyRead {
		c.RecentlyRead = c.RecentlyRead[:MaxRecentlyRead]
	}

	return c.Save()
}

// GetRecentlyReadIDs returns the list of recently read book IDs
func (c *Config) GetRecentlyReadIDs() []string {
	ids := make([]string, len(c.RecentlyRead))
	for i, entry := range c.RecentlyRead {
		ids[i] = entry.BookID
	}
	return ids
}

// GetTextScale returns the stored text scale
func (c *Config) GetTextScale() float64 {
	return c.TextScale
}

// SetTextScale clamps, stores and saves the text scale
func (c *Config) SetTextScale(scale float64) error {
	c.TextScale = clampScale(scale)
	return c.Save()
}

func clampScale(s float64) float64 {
	// keep one decimal so repeated steps don't drift
	s = math.Round(s*10) / 10
	return math.Min(math.Max(s, MinTextScale), MaxTextScale)
}

// Mode returns the configured read mode
func (c *Config) Mode() models.ReadMode {
	m, err := models.ParseReadMode(c.ReadMode)
	if err != nil {
		return models.ReadModeCurl
	}
	return m
}

// SetReadMode stores and saves the read mode
func (c *Config) SetReadMode(m models.ReadMode) error {
	c.ReadMode = m.String()
	return c.Save()
}

// SwitchCooldown is the minimum time between chapter switches
func (c *Config) SwitchCooldown() time.Duration {
	return time.Duration(c.SwitchCooldownMS) * time.Millisecond
}

// Normalizer compiles the replace rules
func (c *Config) Normalizer() (*content.Normalizer, error) {
	return content.NewNormalizer(c.ReplaceRules)
}

// LayoutSpec returns the layout for a text area of width x height cells
// at the configured text scale. Scale narrows the line length; scale 1 is
// the full width.
func (c *Config) LayoutSpec(width, height int) layout.Spec {
	l := c.Layout
	base := float64(width) - 2*l.SideMargin
	content := math.Floor(base / c.TextScale)
	if content < minContentWidth {
		content = minContentWidth
	}
	if content > base {
		content = base
	}
	return layout.Spec{
		FontSize:         1,
		LineSpacing:      l.LineSpacing,
		ParagraphSpacing: l.ParagraphSpacing,
		SideMargin:       l.SideMargin,
		TopInset:         l.TopInset,
		BottomInset:      l.BottomInset,
		PagePadding:      l.PagePadding,
		ViewportWidth:    content + 2*l.SideMargin,
		ViewportHeight:   float64(height),
		Indent:           l.Indent,
	}
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}

	return filepath.Join(configDir, configDirName, configFileName), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
