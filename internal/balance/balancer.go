package balance

import (
	"fmt"

	"github.com/dpotapov/htmlsanitizer/internal/descriptor"
	"github.com/dpotapov/htmlsanitizer/internal/trie"
)

// textGroups is the pseudo content-group membership of a non-whitespace
// text run: character data that is also legal wherever inline content is.
const textGroups = descriptor.CHARACTER_DATA | descriptor.INLINE | descriptor.INLINE_MINUS_A

// openElement is one entry of the open-element stack.
// suppressed marks elements opened past the nesting limit: tracked for
// balance, absent from the output.
type openElement struct {
	name       string
	el         *descriptor.Element
	suppressed bool
}

// Balancer is a pass-through Receiver that rewrites a possibly ill-nested
// event sequence into a balanced, well-nested one consistent with the
// element descriptor table, the resume-queue rendition of the adoption
// agency, and the close-tag scope predicates.
type Balancer struct {
	out   Receiver
	limit int // 0 = unbounded

	stack  []openElement
	resume []*descriptor.Element // FIFO, oldest implicitly-closed first

	// outputDepth counts unsuppressed stack entries, i.e. the depth the
	// downstream receiver currently sees.
	outputDepth int

	// plaintext latches once a policy-allowed <plaintext> is opened: the
	// block has no close sequence, so no structural event after it is
	// honored and all further text folds into it.
	plaintext bool
}

// NewBalancer wraps out with a Balancer. nestingLimit bounds the output's
// open-element depth; 0 means unbounded.
func NewBalancer(out Receiver, nestingLimit int) *Balancer {
	return &Balancer{out: out, limit: nestingLimit}
}

// SetNestingLimit reconfigures the nesting limit mid-stream. Setting a limit
// below the current open depth is misuse and fails synchronously; the
// balancer itself never raises on data.
func (b *Balancer) SetNestingLimit(n int) error {
	if n != 0 && n < len(b.stack) {
		return fmt.Errorf("balance: nesting limit %d below current depth %d", n, len(b.stack))
	}
	b.limit = n
	return nil
}

func (b *Balancer) OpenDocument() {
	b.out.OpenDocument()
}

// CloseDocument emits close tags for every element still open, innermost
// first, then forwards the event.
func (b *Balancer) CloseDocument() {
	for len(b.stack) > 0 {
		b.popTop(false)
	}
	b.resume = b.resume[:0]
	b.out.CloseDocument()
}

func (b *Balancer) OpenTag(name string, attrs []Attribute) {
	if b.plaintext {
		return
	}
	el := descriptor.Lookup(name)
	if el == nil {
		// Unknown element: emitted if within the depth bound, treated as
		// void for purposes of the stack.
		if b.withinLimit() {
			b.out.OpenTag(name, attrs)
		}
		return
	}
	b.prepareToContain(el.Types)
	if el.IsVoid {
		if b.withinLimit() {
			b.out.OpenTag(name, attrs)
		}
		return
	}
	b.push(name, el, attrs)
	if el.EscapeExempt && el.Escaping == descriptor.PLAIN_TEXT {
		b.plaintext = true
	}
}

func (b *Balancer) CloseTag(name string) {
	if b.plaintext {
		return
	}
	el := descriptor.Lookup(name)
	if el == nil {
		// Unknown close tags are forwarded verbatim.
		b.out.CloseTag(name)
		return
	}
	if el.IsVoid {
		return
	}
	idx := b.findInScope(name, el)
	if idx < 0 {
		// Not open, or trapped behind a scope boundary: dropped. If the
		// element was implicitly closed earlier and queued for resumption,
		// the explicit close also cancels that resumption: the author
		// ended it on purpose.
		b.cancelResume(name)
		return
	}
	for len(b.stack) > idx+1 {
		b.popTop(true)
	}
	b.popTop(false)
}

func (b *Balancer) Text(chars string) {
	if b.plaintext {
		b.out.Text(chars)
		return
	}
	if trie.IsAllHTMLSpace(chars) {
		// Pure inter-element whitespace triggers no content-model
		// adjustment.
		b.out.Text(chars)
		return
	}
	b.prepareToContain(textGroups)
	b.out.Text(chars)
}

// prepareToContain adjusts the stack so the top admits content of groups g,
// applying, in order: implicit closes (popping resumables onto the resume
// queue), implied block-container opens, and resume-queue draining.
func (b *Balancer) prepareToContain(g descriptor.Group) {
	if g == 0 {
		return
	}
	for {
		if b.admits(g) {
			break
		}
		top := b.stack[len(b.stack)-1] // admits(g) is true on an empty stack
		if path := impliedPath(top.el, g); path != nil {
			for _, imp := range path {
				b.push(imp.Name, imp, nil)
			}
			break
		}
		b.popTop(true)
	}
	b.drainResume(g)
}

// admits reports whether the current top accepts content of groups g,
// walking ancestors through transparent elements. The empty stack admits
// everything.
func (b *Balancer) admits(g descriptor.Group) bool {
	for i := len(b.stack) - 1; i >= 0; i-- {
		e := b.stack[i].el
		if e.EffectiveContents()&g != 0 {
			return true
		}
		if e.TransparentTo&g == 0 {
			return false
		}
	}
	return true
}

// impliedPath returns the chain of block-container children to open so that
// content of groups g becomes legal under el, e.g. table -> [tbody tr td]
// for text. nil when no declared chain reaches g.
func impliedPath(el *descriptor.Element, g descriptor.Group) []*descriptor.Element {
	var path []*descriptor.Element
	cur := el
	for depth := 0; depth < 4; depth++ {
		child := cur.BlockContainerChild
		if child == nil {
			return nil
		}
		path = append(path, child)
		if child.EffectiveContents()&g != 0 {
			return path
		}
		cur = child
	}
	return nil
}

// drainResume reopens queued formatting elements, oldest first, while the
// top can contain them and they can contain the pending content. The first
// failure stops the drain, leaving the rest queued.
func (b *Balancer) drainResume(g descriptor.Group) {
	for len(b.resume) > 0 {
		r := b.resume[0]
		if !b.admits(r.Types) {
			return
		}
		if r.EffectiveContents()&g == 0 && (r.TransparentTo&g == 0 || !b.admits(g)) {
			return
		}
		b.resume = b.resume[1:]
		b.push(r.Name, r, nil)
	}
}

// cancelResume removes the most recently queued entry for name, if any.
func (b *Balancer) cancelResume(name string) {
	for i := len(b.resume) - 1; i >= 0; i-- {
		if b.resume[i].Name == name {
			b.resume = append(b.resume[:i], b.resume[i+1:]...)
			return
		}
	}
}

// findInScope locates the stack entry an explicit close tag targets, or -1.
// The scan honors the close-tag scope predicates: an intervening element
// whose InScopes bits overlap the target's BlockedByScopes traps the
// search. </h1>..</h6> match the nearest open header of any level.
func (b *Balancer) findInScope(name string, el *descriptor.Element) int {
	for i := len(b.stack) - 1; i >= 0; i-- {
		entry := b.stack[i]
		if entry.name == name || (isHeader(entry.name) && isHeader(name)) {
			return i
		}
		if entry.el.InScopes&el.BlockedByScopes != 0 {
			return -1
		}
	}
	return -1
}

func isHeader(name string) bool {
	return len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6'
}

func (b *Balancer) withinLimit() bool {
	return b.limit == 0 || b.outputDepth < b.limit
}

func (b *Balancer) push(name string, el *descriptor.Element, attrs []Attribute) {
	suppressed := !b.withinLimit()
	b.stack = append(b.stack, openElement{name: name, el: el, suppressed: suppressed})
	if !suppressed {
		b.outputDepth++
		b.out.OpenTag(name, attrs)
	}
}

// popTop closes the topmost open element. When queueResumable is set (an
// implicit close), a resumable formatting element is appended to the resume
// queue in close order. Explicit closes and document-end unwinding never
// queue.
func (b *Balancer) popTop(queueResumable bool) {
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	if !top.suppressed {
		b.outputDepth--
		b.out.CloseTag(top.name)
	}
	if queueResumable && top.el.Resumable {
		b.resume = append(b.resume, top.el)
	}
}
