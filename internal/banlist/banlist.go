// Package banlist keeps a sorted set of banned IP addresses.
package banlist

import (
	"net/netip"

	"github.com/google/btree"
)

type item netip.Addr

var _ btree.Item = item{}

func (i item) Less(than btree.Item) bool {
	return netip.Addr(i).Less(netip.Addr(than.(item)))
}

// List is a set of IP addresses. Zero value is not usable, use New.
type List struct {
	tree *btree.BTree
}

// New returns a new empty List.
func New() *List {
	return &List{tree: btree.New(2)}
}

// Add puts the address into the list.
// Returns false if the address was already in the list.
func (l *List) Add(ip netip.Addr) bool {
	return l.tree.ReplaceOrInsert(item(ip.Unmap())) == nil
}

// AddString parses s as an IP address and adds it to the list.
func (l *List) AddString(s string) error {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return err
	}
	l.Add(ip)
	return nil
}

// Remove takes the address out of the list.
// Returns false if the address was not in the list.
func (l *List) Remove(ip netip.Addr) bool {
	return l.tree.Delete(item(ip.Unmap())) != nil
}

// Contains returns true if the address is in the list.
func (l *List) Contains(ip netip.Addr) bool {
	return l.tree.Has(item(ip.Unmap()))
}

// Len returns the number of addresses in the list.
func (l *List) Len() int {
	return l.tree.Len()
}

// Addrs returns all addresses in the list in sorted order.
func (l *List) Addrs() []netip.Addr {
	addrs := make([]netip.Addr, 0, l.tree.Len())
	l.tree.Ascend(func(i btree.Item) bool {
		addrs = append(addrs, netip.Addr(i.(item)))
		return true
	})
	return addrs
}

// Strings returns all addresses in the list as strings in sorted order.
func (l *List) Strings() []string {
	ss := make([]string, 0, l.tree.Len())
	l.tree.Ascend(func(i btree.Item) bool {
		ss = append(ss, netip.Addr(i.(item)).String())
		return true
	})
	return ss
}
