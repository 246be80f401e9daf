package browser

import (
	"encoding/json"
	"fmt"
)

// ScriptSet bundles the page-side scripts the controller evaluates against
// the loaded dashboard. The selectors inside target the supported
// dashboard's internal component tree, which may change independently of
// this system; an alternative dashboard can supply its own set.
type ScriptSet struct {
	// AuthSeed stores the long-lived access token in the page's persistent
	// storage. Installed as an init script so it runs before any content
	// loads, and re-evaluated before page transitions.
	AuthSeed string

	// Ready is an expression that evaluates to true once the active view
	// has finished loading.
	Ready string

	// DismissUpdateToast clicks the action slot of a transient "update
	// available" notification when one is showing.
	DismissUpdateToast string

	// SetZoom, SetLang and SetTheme build the scripted interactions that
	// re-apply rendering settings on the loaded page.
	SetZoom  func(zoom float64) string
	SetLang  func(lang string) string
	SetTheme func(theme string, dark bool) string
}

// DefaultScripts returns the script set for the supported dashboard.
func DefaultScripts(baseURL, accessToken string) ScriptSet {
	tokens, _ := json.Marshal(map[string]interface{}{
		"access_token":  accessToken,
		"token_type":    "Bearer",
		"expires_in":    1800,
		"expires":       9999999999999,
		"hassUrl":       baseURL,
		"clientId":      baseURL + "/",
		"refresh_token": "",
	})

	return ScriptSet{
		AuthSeed: fmt.Sprintf(`window.localStorage.setItem("hassTokens", %s);`,
			mustJSON(string(tokens))),

		Ready: `(() => {
			const app = document.querySelector("home-assistant");
			const main = app && app.shadowRoot && app.shadowRoot.querySelector("home-assistant-main");
			const panel = main && main.shadowRoot && main.shadowRoot.querySelector("ha-panel-lovelace");
			const root = panel && panel.shadowRoot && panel.shadowRoot.querySelector("hui-root");
			const view = root && root.shadowRoot && root.shadowRoot.querySelector("hui-view");
			if (!view) { return false; }
			return view._loading !== true;
		})()`,

		DismissUpdateToast: `(() => {
			const app = document.querySelector("home-assistant");
			const manager = app && app.shadowRoot && app.shadowRoot.querySelector("notification-manager");
			const toast = manager && manager.shadowRoot && manager.shadowRoot.querySelector("ha-toast[opened]");
			const action = toast && toast.querySelector("[slot='action']");
			if (action) { action.click(); return true; }
			return false;
		})()`,

		SetZoom: func(zoom float64) string {
			return fmt.Sprintf(`document.body.style.zoom = %g;`, zoom)
		},

		SetLang: func(lang string) string {
			return fmt.Sprintf(`window.localStorage.setItem("selectedLanguage", JSON.stringify(%s));`,
				mustJSON(lang))
		},

		SetTheme: func(theme string, dark bool) string {
			return fmt.Sprintf(`(() => {
				const app = document.querySelector("home-assistant");
				if (!app) { return false; }
				app.dispatchEvent(new CustomEvent("settheme", {
					detail: { theme: %s, dark: %t },
					bubbles: true,
					composed: true,
				}));
				return true;
			})()`, mustJSON(theme), dark)
		},
	}
}

// mustJSON renders v as a JavaScript literal.
func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
