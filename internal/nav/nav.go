// Package nav models the site header: the menu structure and the responsive
// open/closed state of the mobile menu, its submenus and the scroll shadow.
package nav

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
)

const (
	// Breakpoint is the widest viewport, in CSS pixels, that uses the
	// mobile layout.
	Breakpoint = 768
	// ScrollThreshold is the offset past which the header casts a shadow.
	ScrollThreshold = 10
)

// Item is a header link, optionally with a nested submenu.
type Item struct {
	Label   string
	Href    string
	Submenu []Item
}

// HasSubmenu reports whether the item expands into a submenu.
func (i Item) HasSubmenu() bool {
	return len(i.Submenu) > 0
}

// Menu is the ordered list of top-level header items.
type Menu []Item

// Find returns the top-level item with label.
func (m Menu) Find(label string) (Item, bool) {
	for _, it := range m {
		if it.Label == label {
			return it, true
		}
	}
	return Item{}, false
}

// DefaultMenu is the storefront header.
func DefaultMenu() Menu {
	return Menu{
		{Label: "Home", Href: "/"},
		{Label: "Shop", Href: "/shop", Submenu: []Item{
			{Label: "All Products", Href: "/shop?category=all"},
			{Label: "Paper", Href: "/shop?category=paper"},
			{Label: "Tools", Href: "/shop?category=tools"},
			{Label: "Stamps", Href: "/shop?category=stamps"},
			{Label: "Embellishments", Href: "/shop?category=embellishments"},
			{Label: "Diamond Art", Href: "/shop?category=diamond-art"},
			{Label: "Kits", Href: "/shop?category=kits"},
		}},
		{Label: "Classes", Href: "/classes"},
		{Label: "Contact", Href: "/contact"},
	}
}

// State is the header state for one page view. The zero value is a closed
// menu at the top of the page.
type State struct {
	MenuOpen bool
	Scrolled bool
	open     map[string]bool
}

// IsMobile reports whether width uses the mobile layout.
func IsMobile(width int) bool {
	return width <= Breakpoint
}

// ToggleMenu flips the mobile menu.
func (s *State) ToggleMenu() {
	s.MenuOpen = !s.MenuOpen
}

// OutsideClick closes the menu when the click landed outside the header.
func (s *State) OutsideClick() {
	s.MenuOpen = false
}

// Escape closes an open menu and reports whether it did.
func (s *State) Escape() bool {
	if !s.MenuOpen {
		return false
	}
	s.MenuOpen = false
	return true
}

// Resize collapses the menu and every submenu when width leaves the mobile
// layout.
func (s *State) Resize(width int) {
	if IsMobile(width) {
		return
	}
	s.MenuOpen = false
	clear(s.open)
}

// ToggleSubmenu flips the submenu of item. Desktop widths open submenus on
// hover, so the toggle is ignored there.
func (s *State) ToggleSubmenu(item Item, width int) {
	if !item.HasSubmenu() || !IsMobile(width) {
		return
	}
	if s.open[item.Label] {
		delete(s.open, item.Label)
		return
	}
	if s.open == nil {
		s.open = make(map[string]bool)
	}
	s.open[item.Label] = true
}

// LinkActivated handles a click on a top-level link. On mobile a link with a
// submenu toggles it and keeps the menu open; anything else navigates and
// closes the menu.
func (s *State) LinkActivated(item Item, width int) {
	if item.HasSubmenu() && IsMobile(width) {
		s.ToggleSubmenu(item, width)
		return
	}
	s.MenuOpen = false
}

// Scroll updates the shadow flag for vertical offset y.
func (s *State) Scroll(y int) {
	s.Scrolled = y > ScrollThreshold
}

// SubmenuOpen reports whether the submenu labelled label is expanded.
func (s *State) SubmenuOpen(label string) bool {
	return s.open[label]
}

// OpenSubmenus returns the labels of expanded submenus in sorted order.
func (s *State) OpenSubmenus() []string {
	return slices.Sorted(maps.Keys(s.open))
}

// Values encodes the state as form values so it can round-trip through the
// header fragment.
func (s *State) Values() url.Values {
	v := url.Values{}
	if s.MenuOpen {
		v.Set("menu", "open")
	}
	if s.Scrolled {
		v.Set("scrolled", "1")
	}
	for _, label := range s.OpenSubmenus() {
		v.Add("submenu", label)
	}
	return v
}

// ParseState restores a State from form values, keeping only submenus that
// exist in menu.
func ParseState(v url.Values, menu Menu) State {
	s := State{
		MenuOpen: v.Get("menu") == "open",
	}
	s.Scrolled, _ = strconv.ParseBool(v.Get("scrolled"))
	for _, label := range v["submenu"] {
		it, ok := menu.Find(label)
		if !ok || !it.HasSubmenu() {
			continue
		}
		if s.open == nil {
			s.open = make(map[string]bool)
		}
		s.open[label] = true
	}
	return s
}
