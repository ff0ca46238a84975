package comparison

import "github.com/Sergey0107/verification-products/internal/products"

// productIndex holds one side's characteristics for a product name.
type productIndex struct {
	order []string
	chars map[string]products.Characteristic
}

func newProductIndex() *productIndex {
	return &productIndex{chars: map[string]products.Characteristic{}}
}

func (p *productIndex) add(chars []products.Characteristic) {
	for _, c := range chars {
		if _, seen := p.chars[c.Name]; seen {
			continue
		}
		p.chars[c.Name] = c
		p.order = append(p.order, c.Name)
	}
}

func indexProducts(list []products.Product) ([]string, map[string]*productIndex) {
	var names []string
	byName := map[string]*productIndex{}
	for _, p := range list {
		idx, ok := byName[p.Name]
		if !ok {
			idx = newProductIndex()
			byName[p.Name] = idx
			names = append(names, p.Name)
		}
		idx.add(p.Characteristics)
	}
	return names, byName
}

// Align merges specification-side (left) and passport-side (right) products
// into an ordered list of comparison items.
//
// A single left product compared against several right products is treated as a
// shared baseline: one group is emitted per right product, in right order.
func Align(left, right []products.Product) []Item {
	if len(left) == 1 && len(right) > 1 {
		_, baseline := indexProducts(left)
		base := baseline[left[0].Name]
		var items []Item
		for _, rp := range right {
			unit := newProductIndex()
			unit.add(rp.Characteristics)
			items = append(items, pairItems(rp.Name, base, unit)...)
		}
		return nonNil(items)
	}

	leftNames, leftIdx := indexProducts(left)
	rightNames, rightIdx := indexProducts(right)

	var items []Item
	for _, name := range unionNames(leftNames, rightNames) {
		items = append(items, pairItems(name, leftIdx[name], rightIdx[name])...)
	}
	return nonNil(items)
}

func pairItems(productName string, left, right *productIndex) []Item {
	var leftOrder, rightOrder []string
	if left != nil {
		leftOrder = left.order
	}
	if right != nil {
		rightOrder = right.order
	}

	names := unionNames(leftOrder, rightOrder)
	items := make([]Item, 0, len(names))
	for _, name := range names {
		item := Item{
			ProductName:        productName,
			Characteristic:     name,
			TZReferences:       []string{},
			PassportReferences: []string{},
		}
		if c, ok := lookup(left, name); ok {
			item.TZValue = c.Value
			item.TZReferences = copyRefs(c.References)
		}
		if c, ok := lookup(right, name); ok {
			item.PassportValue = c.Value
			item.PassportReferences = copyRefs(c.References)
		}
		items = append(items, item)
	}
	return items
}

func lookup(idx *productIndex, name string) (products.Characteristic, bool) {
	if idx == nil {
		return products.Characteristic{}, false
	}
	c, ok := idx.chars[name]
	return c, ok
}

func unionNames(first, second []string) []string {
	seen := make(map[string]struct{}, len(first)+len(second))
	out := make([]string, 0, len(first)+len(second))
	for _, list := range [][]string{first, second} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func copyRefs(refs []string) []string {
	out := make([]string, len(refs))
	copy(out, refs)
	return out
}

func nonNil(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}
