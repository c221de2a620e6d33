// Package notify prints short status lines for the user, the terminal
// counterpart of toast notifications.
package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
)

// Notifier writes styled one-line messages
type Notifier struct {
	out   io.Writer
	plain bool
}

// New returns a notifier writing to out. Plain disables colors and icons.
func New(out io.Writer, plain bool) *Notifier {
	return &Notifier{out: out, plain: plain}
}

// Stdout returns a colored notifier on standard output
func Stdout() *Notifier {
	return New(os.Stdout, false)
}

func (n *Notifier) Success(format string, args ...any) {
	n.line(promptui.IconGood, promptui.Styler(promptui.FGGreen), format, args...)
}

func (n *Notifier) Error(format string, args ...any) {
	n.line(promptui.IconBad, promptui.Styler(promptui.FGRed), format, args...)
}

func (n *Notifier) Info(format string, args ...any) {
	n.line(promptui.IconInitial, promptui.Styler(promptui.FGCyan), format, args...)
}

// Detail prints an indented continuation line
func (n *Notifier) Detail(format string, args ...any) {
	fmt.Fprintf(n.out, "  "+format+"\n", args...)
}

func (n *Notifier) line(icon string, style func(any) string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if n.plain {
		fmt.Fprintln(n.out, msg)
		return
	}
	fmt.Fprintf(n.out, "%s %s\n", icon, style(msg))
}
