// Package selector decides whether a trigger applies to the element that had
// focus when a key was pressed.
//
// Targets are *html.Node elements matched with CSS selectors. A nil target
// is treated as the document body and a string target as a bare element of
// that tag name, so hosts without a DOM can still scope shortcuts by
// describing the focused widget.
package selector

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultSelector excludes text-input-like elements.
const DefaultSelector = ":not(input):not(textarea)"

// Selector errors.
var (
	ErrInvalidSelector   = errors.New("invalid selector")
	ErrUnsupportedTarget = errors.New("unsupported target")
)

// Matcher evaluates a selector against an event target.
type Matcher interface {
	Match(target any, selector string) (bool, error)
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(target any, selector string) (bool, error)

// Match calls f.
func (f MatcherFunc) Match(target any, selector string) (bool, error) {
	return f(target, selector)
}

// Elementer is implemented by targets that can present themselves as an element.
type Elementer interface {
	Element() *html.Node
}

// Element builds a detached element node.
func Element(tag string, attrs ...html.Attribute) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// Attr is a shorthand for an html.Attribute.
func Attr(name, value string) html.Attribute {
	return html.Attribute{Key: name, Val: value}
}

// CSSMatcher matches CSS selectors using cascadia.
// Compiled selectors are cached; CSSMatcher is safe for concurrent use.
type CSSMatcher struct {
	mu    sync.RWMutex
	cache map[string]cascadia.Selector
	body  *html.Node
}

// NewCSSMatcher creates a matcher with an empty selector cache.
func NewCSSMatcher() *CSSMatcher {
	return &CSSMatcher{
		cache: make(map[string]cascadia.Selector),
		body:  Element("body"),
	}
}

// Compile validates and caches a selector.
func (m *CSSMatcher) Compile(selector string) (cascadia.Selector, error) {
	if selector == "" {
		selector = DefaultSelector
	}

	m.mu.RLock()
	sel, ok := m.cache[selector]
	m.mu.RUnlock()
	if ok {
		return sel, nil
	}

	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSelector, selector, err)
	}

	m.mu.Lock()
	m.cache[selector] = sel
	m.mu.Unlock()
	return sel, nil
}

// Match reports whether target matches selector. An empty selector means
// DefaultSelector.
func (m *CSSMatcher) Match(target any, selector string) (bool, error) {
	node, err := m.node(target)
	if err != nil {
		return false, err
	}

	sel, err := m.Compile(selector)
	if err != nil {
		return false, err
	}
	return sel.Match(node), nil
}

func (m *CSSMatcher) node(target any) (*html.Node, error) {
	switch t := target.(type) {
	case nil:
		return m.body, nil
	case *html.Node:
		if t == nil {
			return m.body, nil
		}
		return t, nil
	case string:
		if t == "" {
			return m.body, nil
		}
		return Element(t), nil
	case Elementer:
		if n := t.Element(); n != nil {
			return n, nil
		}
		return m.body, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedTarget, target)
	}
}

// MatchAll matches every target. It is useful for hosts with no notion of focus.
var MatchAll = MatcherFunc(func(any, string) (bool, error) { return true, nil })
