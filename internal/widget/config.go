package widget

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// DefaultAPIURL is the relay endpoint path served by the backend.
const DefaultAPIURL = "/api/chat"

// DefaultWelcomeMessage is shown the first time the widget opens on an empty log.
const DefaultWelcomeMessage = "Hello! How can I help you today?"

// Theme carries the host page's visual overrides.
type Theme struct {
	PrimaryColor string `json:"primaryColor,omitempty"`
}

// CSSVariables returns the custom properties the widget stylesheet reads.
func (t Theme) CSSVariables() map[string]string {
	vars := map[string]string{}
	if t.PrimaryColor != "" {
		vars["--primary-color"] = t.PrimaryColor
	}
	return vars
}

// Config is everything a widget instance needs. The JSON form is what the
// embed loader hands to the entry point.
type Config struct {
	ContainerID    string `json:"containerId"`
	BaseURL        string `json:"baseUrl,omitempty"`
	APIURL         string `json:"apiUrl"`
	CustomerDomain string `json:"customerDomain,omitempty"`
	Theme          Theme  `json:"theme"`
	WelcomeMessage string `json:"welcomeMessage,omitempty"`

	Storage    Storage      `json:"-"`
	HTTPClient *http.Client `json:"-"`
	View       View         `json:"-"`
}

// UnmarshalJSON accepts the legacy "customerId" key as an alias for
// "customerDomain".
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	var aux struct {
		plain
		CustomerID string `json:"customerId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Config(aux.plain)
	if c.CustomerDomain == "" {
		c.CustomerDomain = aux.CustomerID
	}
	return nil
}

// Endpoint resolves APIURL against BaseURL.
func (c Config) Endpoint() (string, error) {
	api := c.APIURL
	if api == "" {
		api = DefaultAPIURL
	}
	ref, err := url.Parse(api)
	if err != nil {
		return "", errors.Wrapf(err, "parse api url %q", api)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return "", errors.Errorf("api url %q is relative and no base url is set", api)
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", errors.Wrapf(err, "parse base url %q", c.BaseURL)
	}
	return base.ResolveReference(ref).String(), nil
}
