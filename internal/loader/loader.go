// Package loader renders the embeddable loader script and boots widget
// configurations for Go hosts.
package loader

import (
	"bytes"
	"embed"
	"io"
	"net/url"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zhouzirui/dealer-chat/backend/internal/widget"
)

const (
	DefaultStylesheetURL = "/chat-widget.css"
	DefaultBundleURL     = "/chat-widget-bundle.js"
	DefaultPrimaryColor  = "#007bff"

	containerPrefix = "chat-widget-"
)

//go:embed assets/chat-widget.js.tmpl assets/chat-widget.css
var assets embed.FS

var scriptTemplate = template.Must(template.ParseFS(assets, "assets/chat-widget.js.tmpl"))

// ScriptOptions controls the URLs baked into the loader script.
type ScriptOptions struct {
	StylesheetURL string
	BundleURL     string
	APIURL        string
	PrimaryColor  string
}

func (o ScriptOptions) withDefaults() ScriptOptions {
	if o.StylesheetURL == "" {
		o.StylesheetURL = DefaultStylesheetURL
	}
	if o.BundleURL == "" {
		o.BundleURL = DefaultBundleURL
	}
	if o.APIURL == "" {
		o.APIURL = widget.DefaultAPIURL
	}
	if o.PrimaryColor == "" {
		o.PrimaryColor = DefaultPrimaryColor
	}
	return o
}

// WriteScript renders the loader script into w.
func WriteScript(w io.Writer, opts ScriptOptions) error {
	return errors.Wrap(scriptTemplate.Execute(w, opts.withDefaults()), "render loader script")
}

// Script renders the loader script.
func Script(opts ScriptOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteScript(&buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Stylesheet returns the widget stylesheet.
func Stylesheet() []byte {
	data, err := assets.ReadFile("assets/chat-widget.css")
	if err != nil {
		panic(err)
	}
	return data
}

// Option adjusts the configuration produced by Boot.
type Option func(*widget.Config)

func WithAPIURL(apiURL string) Option {
	return func(c *widget.Config) { c.APIURL = apiURL }
}

func WithPrimaryColor(color string) Option {
	return func(c *widget.Config) { c.Theme.PrimaryColor = color }
}

func WithWelcomeMessage(msg string) Option {
	return func(c *widget.Config) { c.WelcomeMessage = msg }
}

func WithStorage(s widget.Storage) Option {
	return func(c *widget.Config) { c.Storage = s }
}

func WithView(v widget.View) Option {
	return func(c *widget.Config) { c.View = v }
}

// Boot does for a Go host what the loader script does for a web page: it
// picks a container id and derives the customer domain from the page URL.
func Boot(pageURL string, opts ...Option) (widget.Config, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return widget.Config{}, errors.Wrapf(err, "parse page url %q", pageURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return widget.Config{}, errors.Errorf("page url %q must be absolute", pageURL)
	}

	cfg := widget.Config{
		ContainerID:    NewContainerID(),
		BaseURL:        u.Scheme + "://" + u.Host,
		APIURL:         widget.DefaultAPIURL,
		CustomerDomain: u.Hostname(),
		Theme:          widget.Theme{PrimaryColor: DefaultPrimaryColor},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, nil
}

// NewContainerID returns "chat-widget-" followed by nine random characters.
func NewContainerID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return containerPrefix + id[:9]
}
