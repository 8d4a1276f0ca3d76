package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/screen"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorPurple = lipgloss.Color("99")  // Brand - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorPurple)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorPurple)

	styleAction  = lipgloss.NewStyle().Foreground(colorPurple).Bold(true)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleAlert   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorPurple).Padding(0, 1)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Screen Output
// =============================================================================

// renderAlert formats a one-shot alert as a boxed message.
func renderAlert(a errors.Alert) string {
	body := a.Message
	if a.Title != "" {
		body = lipgloss.NewStyle().Bold(true).Render(a.Title) + "\n" + a.Message
	}
	return styleAlert.Render(body)
}

// printAlert prints an alert raised by a screen controller.
func printAlert(a errors.Alert) {
	fmt.Println(renderAlert(a))
}

// renderActions formats the buttons of a screen.
func renderActions(actions []string) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = styleAction.Render("[" + a + "]")
	}
	return strings.Join(parts, " ")
}

// printAboutView prints the non-interactive rendition of the About screen.
func printAboutView(v screen.AboutView) {
	switch {
	case v.Map != nil:
		printSuccess("Location found")
		for _, m := range v.Map.Markers {
			printKeyValue(m.Title, m.Coordinate.String())
		}
		printKeyValue("Map", StyleLink.Render(v.Map.Region.URL()))
	case v.Spinner:
		printInfo("%s", v.Message)
		printDetail("%s", v.Help)
	default:
		printError("%s", v.Message)
		if v.Help != "" {
			printDetail("%s", v.Help)
		}
		if len(v.Actions) > 0 {
			fmt.Println("  " + renderActions(v.Actions))
		}
	}
}

func printNewline() {
	fmt.Println()
}
