package terminal

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fieldworks/depot/internal/catalog"
)

// CancelWord aborts the in-progress operation when typed at any prompt.
const CancelWord = "cancel"

// Prompter collects and type-coerces operator input. Every Read method
// reports ok=false when the operator cancelled (or input ended), so callers
// can abandon an operation before any state was touched.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter constructs Prompter reading from in and writing to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Printf writes formatted text to the operator.
func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// ReadLine prompts once and returns the trimmed answer.
func (p *Prompter) ReadLine(label string) (string, bool) {
	fmt.Fprintf(p.out, "%s", label)
	if !p.in.Scan() {
		return "", false
	}
	answer := strings.TrimSpace(p.in.Text())
	if strings.EqualFold(answer, CancelWord) {
		return "", false
	}
	return answer, true
}

// ReadRequired re-prompts until a non-empty answer arrives.
func (p *Prompter) ReadRequired(label string) (string, bool) {
	for {
		answer, ok := p.ReadLine(label)
		if !ok {
			return "", false
		}
		if answer != "" {
			return answer, true
		}
		fmt.Fprintln(p.out, "A value is required.")
	}
}

// ReadFloat re-prompts until a parseable number arrives.
func (p *Prompter) ReadFloat(label string) (float64, bool) {
	for {
		answer, ok := p.ReadLine(label)
		if !ok {
			return 0, false
		}
		v, err := strconv.ParseFloat(answer, 64)
		if err == nil {
			return v, true
		}
		fmt.Fprintln(p.out, "Invalid number, try again.")
	}
}

// ReadInt re-prompts until a parseable integer arrives.
func (p *Prompter) ReadInt(label string) (int, bool) {
	for {
		answer, ok := p.ReadLine(label)
		if !ok {
			return 0, false
		}
		v, err := strconv.Atoi(answer)
		if err == nil {
			return v, true
		}
		fmt.Fprintln(p.out, "Invalid integer, try again.")
	}
}

// ReadDate re-prompts until a DD/MM/YYYY date arrives.
func (p *Prompter) ReadDate(label string) (catalog.Date, bool) {
	for {
		answer, ok := p.ReadLine(label)
		if !ok {
			return catalog.Date{}, false
		}
		d, err := catalog.ParseDate(answer)
		if err == nil {
			return d, true
		}
		fmt.Fprintln(p.out, "Invalid date, use DD/MM/YYYY.")
	}
}

// ReadYesNo re-prompts until y or n arrives.
func (p *Prompter) ReadYesNo(label string) (bool, bool) {
	for {
		answer, ok := p.ReadLine(label + " (y/n): ")
		if !ok {
			return false, false
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, true
		case "n", "no":
			return false, true
		}
		fmt.Fprintln(p.out, "Answer y or n.")
	}
}

// Choose prints numbered options and returns the zero-based pick.
func (p *Prompter) Choose(label string, options []string) (int, bool) {
	fmt.Fprintln(p.out, label)
	for i, opt := range options {
		fmt.Fprintf(p.out, "%d - %s\n", i+1, opt)
	}
	for {
		pick, ok := p.ReadInt("Choose an option: ")
		if !ok {
			return 0, false
		}
		if pick >= 1 && pick <= len(options) {
			return pick - 1, true
		}
		fmt.Fprintln(p.out, "Invalid option, try again.")
	}
}
