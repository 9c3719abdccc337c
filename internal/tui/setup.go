package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/ghtraffic/internal/config"
	"github.com/theirongolddev/ghtraffic/internal/store"
	"github.com/theirongolddev/ghtraffic/internal/tui/theme"
)

// SetupValues holds the answers collected by the setup form.
type SetupValues struct {
	Token       string
	DatabaseURL string
	AuthToken   string
	Theme       string
}

// SetupValuesFrom pre-fills the form from an existing config.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		Token:       cfg.GitHub.Token,
		DatabaseURL: cfg.Database.URL,
		AuthToken:   cfg.Database.AuthToken,
		Theme:       cfg.Appearance.Theme,
	}
}

// Apply copies the answers into cfg. Blank answers leave cfg untouched,
// except the database URL, where blank means the default local file.
func (v SetupValues) Apply(cfg *config.Config) {
	if tok := strings.TrimSpace(v.Token); tok != "" {
		cfg.GitHub.Token = tok
	}
	cfg.Database.URL = strings.TrimSpace(v.DatabaseURL)
	if tok := strings.TrimSpace(v.AuthToken); tok != "" {
		cfg.Database.AuthToken = tok
	}
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
	}
}

// NewSetupForm builds the first-run form. Answers are written into vals;
// savePath is only shown to the user.
func NewSetupForm(vals *SetupValues, savePath string) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}
	if vals.Theme == "" {
		vals.Theme = theme.FlexokiDark.Name
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to ghtraffic").
				Description("Repository traffic history beyond GitHub's 14-day window.\nSettings are saved to "+savePath),
			huh.NewInput().
				Title("GitHub token").
				Description("Needs read access to repository administration (traffic).\nLeave blank to use GITHUB_TOKEN.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.Token),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Database").
				Description("Local path or libsql:// URL. Blank uses "+config.DefaultDatabasePath()).
				Placeholder(config.DefaultDatabasePath()).
				Value(&vals.DatabaseURL).
				Validate(validateDatabaseURL),
			huh.NewInput().
				Title("Database auth token").
				Description("Only needed for remote libSQL databases.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.AuthToken),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
		),
	).WithTheme(huh.ThemeCharm())
}

func validateDatabaseURL(s string) error {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "://") && !strings.HasPrefix(s, "file:") && store.DriverFor(s) != "libsql" {
		return errors.New("use a local path, file: URI, or libsql:// URL")
	}
	return nil
}
