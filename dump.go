package qthought

import (
	"fmt"
	"math"
	"math/cmplx"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// One style per register, cycling, so the bit grouping stays readable in
// wide systems.
var dumpPalette = []lipgloss.Style{
	lipgloss.NewStyle(),
	lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
}

/*
Dump renders the current basis-state decomposition in Dirac notation, one
term per basis state with non-negligible amplitude, bits grouped and colored
per register in declaration order. Diagnostic only.
*/
func (sys *System) Dump() string {
	var terms []string
	for basis, amp := range sys.vector {
		if cmplx.Abs(amp) <= sys.tol {
			continue
		}
		var bits strings.Builder
		for i, reg := range sys.regs {
			group := fmt.Sprintf("%0*b", reg.Width, reg.valueOf(basis))
			bits.WriteString(dumpPalette[i%len(dumpPalette)].Render(group))
		}
		terms = append(terms, fmt.Sprintf("%s|%s>", roundAmp(amp), bits.String()))
	}
	return strings.Join(terms, " + ")
}

func (sys *System) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "System: %d qubits\n", sys.nBits)
	names := make([]string, len(sys.regs))
	for i, reg := range sys.regs {
		names[i] = dumpPalette[i%len(dumpPalette)].Render(reg.Name)
	}
	fmt.Fprintf(&b, "%-14s%s\n", "Print order:", strings.Join(names, " "))
	fmt.Fprintf(&b, "Wavefunction:\n%s", sys.Dump())
	return b.String()
}

// roundAmp formats an amplitude with real and imaginary parts rounded to
// two decimals, dropping the vanishing part.
func roundAmp(amp complex128) string {
	re := math.Round(real(amp)*100) / 100
	im := math.Round(imag(amp)*100) / 100
	switch {
	case im == 0:
		return formatFloat(re)
	case re == 0:
		return formatFloat(im) + "i"
	case im < 0:
		return fmt.Sprintf("(%s%si)", formatFloat(re), formatFloat(im))
	default:
		return fmt.Sprintf("(%s+%si)", formatFloat(re), formatFloat(im))
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
