package catalog

// BatchSize bounds the number of SKUs sent upstream in one request.
const BatchSize = 50

// Batch is a run of consecutive products holding at most BatchSize products
// with a SKU. Products without a SKU stay in place and are reported as
// skipped.
type Batch struct {
	Index    int
	Products []*Product
}

// SKUs returns the distinct SKUs of the batch in product order.
func (b Batch) SKUs() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range b.Products {
		sku := p.SKU()
		if sku == "" || seen[sku] {
			continue
		}
		seen[sku] = true
		out = append(out, sku)
	}
	return out
}

func (b Batch) Skipped() []*Product {
	var out []*Product
	for _, p := range b.Products {
		if p.SKU() == "" {
			out = append(out, p)
		}
	}
	return out
}

// Partition splits products into batches without reordering them.
func Partition(products []*Product, size int) []Batch {
	if size <= 0 {
		size = BatchSize
	}
	var (
		batches []Batch
		cur     []*Product
		withSKU int
	)
	for _, p := range products {
		if p.SKU() != "" && withSKU == size {
			batches = append(batches, Batch{Index: len(batches) + 1, Products: cur})
			cur, withSKU = nil, 0
		}
		cur = append(cur, p)
		if p.SKU() != "" {
			withSKU++
		}
	}
	if len(cur) > 0 {
		batches = append(batches, Batch{Index: len(batches) + 1, Products: cur})
	}
	return batches
}
