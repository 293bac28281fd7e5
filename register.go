package qthought

// Register kinds allocated on behalf of a full Agent declaration.
const (
	kindAgentPrediction Kind = "AgentPrediction"
	kindAgentInference  Kind = "AgentInference"
)

/*
Register describes one named subsystem inside an allocated System: its kind,
bit width and position in the shared basis index. Registers are fixed at
allocation time and never resized; all hot-path operations address them
through the precomputed shift instead of repeated name lookups.

The first-declared register occupies the most significant bits, so a printed
basis string reads left to right in declaration order.
*/
type Register struct {
	Name  string
	Kind  Kind
	Width int

	shift int
}

func (r *Register) mask() int {
	return (1<<r.Width - 1) << r.shift
}

// valueOf extracts the register's classical value from a full basis index.
func (r *Register) valueOf(basis int) int {
	return (basis >> r.shift) & (1<<r.Width - 1)
}

// positions lists the register's bit positions, most significant first.
func (r *Register) positions() []int {
	out := make([]int, r.Width)
	for i := 0; i < r.Width; i++ {
		out[i] = r.shift + r.Width - 1 - i
	}
	return out
}
