package score

// Theme selects between the light and dark variant of a color.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ParseTheme maps a cookie or query value onto a Theme; anything other than
// "dark" is the light theme.
func ParseTheme(s string) Theme {
	if s == string(Dark) {
		return Dark
	}
	return Light
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Color is the display mapping for a single token.
type Color struct {
	Light string `json:"hex_color_light"`
	Dark  string `json:"hex_color_dark"`
	// Name is the semantic color name, used to pick a readable text color.
	Name string `json:"color_name"`
}

// Fallback and text colors.
const (
	neutralBackgroundLight = "#F8F9FA"
	neutralBackgroundDark  = "#4A5568"
	neutralTextLight       = "#333333"
	neutralTextDark        = "#E2E8F0"
	darkText               = "#1A202C"
	lightText              = "#FFFFFF"
)

// Palette is the score color reference data keyed by exact token.
type Palette map[string]Color

// Background returns the background color for token under theme. Unknown
// tokens get a theme-neutral color.
func (p Palette) Background(token string, theme Theme) string {
	c, ok := p[token]
	if !ok {
		if theme == Dark {
			return neutralBackgroundDark
		}
		return neutralBackgroundLight
	}
	if theme == Dark {
		return c.Dark
	}
	return c.Light
}

// Text returns the text color that stays readable on token's background.
// White backgrounds use the theme's neutral text, yellow needs dark text and
// every other color takes light text.
func (p Palette) Text(token string, theme Theme) string {
	c, ok := p[token]
	if !ok || c.Name == "white" {
		if theme == Dark {
			return neutralTextDark
		}
		return neutralTextLight
	}
	if c.Name == "yellow" {
		return darkText
	}
	return lightText
}
