package notify

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

const (
	OpenText  = "Say hello to WellBot, Well-Co's assistant powered by Hume AI's Empathic Voice Interface!"
	CloseText = "Thank you for using WellBot, take care!!!"
)

var bannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#7D56F4")).
	Border(lipgloss.DoubleBorder()).
	BorderForeground(lipgloss.Color("#7D56F4")).
	Padding(1, 4).
	Width(72).
	Align(lipgloss.Center)

// Banner prints text in a framed box to the operator console.
func Banner(w io.Writer, text string) {
	fmt.Fprintln(w, bannerStyle.Render(text))
}
