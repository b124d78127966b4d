package shopify

import (
	"context"
	"fmt"
)

const variantInventoryQuery = `query GetBulkInventory($query: String!, $locationId: ID!, $first: Int!) {
  productVariants(first: $first, query: $query) {
    edges {
      node {
        sku
        inventoryItem {
          inventoryLevel(locationId: $locationId) {
            quantities(names: ["available"]) { name quantity }
          }
        }
      }
    }
  }
}`

type quantity struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func available(qs []quantity) int {
	for _, q := range qs {
		if q.Name == "available" {
			return q.Quantity
		}
	}
	return 0
}

type variantInventoryResponse struct {
	ProductVariants struct {
		Edges []struct {
			Node struct {
				SKU           *string `json:"sku"`
				InventoryItem struct {
					InventoryLevel *struct {
						Quantities []quantity `json:"quantities"`
					} `json:"inventoryLevel"`
				} `json:"inventoryItem"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"productVariants"`
}

// InventoryBySKUs returns the available quantity at locationID for each of
// skus that exists in the store. A variant not stocked at the location
// reports 0; a SKU missing from the result is unknown to the store.
func (c *Client) InventoryBySKUs(ctx context.Context, skus []string, locationID string) (map[string]int, error) {
	out := map[string]int{}
	if len(skus) == 0 {
		return out, nil
	}
	if len(skus) > MaxPageSize {
		return nil, fmt.Errorf("inventory lookup: %d SKUs exceeds page size %d", len(skus), MaxPageSize)
	}
	wanted := make(map[string]bool, len(skus))
	for _, s := range skus {
		wanted[s] = true
	}

	var resp variantInventoryResponse
	vars := map[string]interface{}{
		"query":      orTerms("sku", skus),
		"locationId": locationID,
		"first":      MaxPageSize,
	}
	if err := c.Execute(ctx, variantInventoryQuery, vars, &resp); err != nil {
		return nil, err
	}
	for _, edge := range resp.ProductVariants.Edges {
		n := edge.Node
		if n.SKU == nil || !wanted[*n.SKU] {
			continue
		}
		qty := 0
		if lvl := n.InventoryItem.InventoryLevel; lvl != nil {
			qty = available(lvl.Quantities)
		}
		out[*n.SKU] = qty
	}
	return out, nil
}

const locationInventoryQuery = `query GetLocationInventory($locationId: ID!, $cursor: String) {
  location(id: $locationId) {
    inventoryLevels(first: 250, after: $cursor) {
      pageInfo { hasNextPage endCursor }
      edges {
        node {
          quantities(names: ["available"]) { name quantity }
          item {
            sku
            variant {
              sku
              title
              barcode
              product { title }
            }
          }
        }
      }
    }
  }
}`

// InventoryLevel is one stocked item at a location.
type InventoryLevel struct {
	SKU          string `json:"sku"`
	ProductTitle string `json:"product_title"`
	VariantTitle string `json:"variant_title"`
	Barcode      string `json:"barcode,omitempty"`
	Available    int    `json:"available_quantity"`
}

type locationInventoryResponse struct {
	Location *struct {
		InventoryLevels struct {
			PageInfo struct {
				HasNextPage bool    `json:"hasNextPage"`
				EndCursor   *string `json:"endCursor"`
			} `json:"pageInfo"`
			Edges []struct {
				Node struct {
					Quantities []quantity `json:"quantities"`
					Item       struct {
						SKU     *string `json:"sku"`
						Variant *struct {
							SKU     *string `json:"sku"`
							Title   string  `json:"title"`
							Barcode *string `json:"barcode"`
							Product struct {
								Title string `json:"title"`
							} `json:"product"`
						} `json:"variant"`
					} `json:"item"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"inventoryLevels"`
	} `json:"location"`
}

// PageFunc receives each page of inventory levels. Returning an error stops
// pagination.
type PageFunc func(page int, levels []InventoryLevel) error

// LocationInventory walks every inventory level at a location.
func (c *Client) LocationInventory(ctx context.Context, locationID string, fn PageFunc) error {
	vars := map[string]interface{}{"locationId": locationID, "cursor": nil}
	for page := 1; ; page++ {
		var resp locationInventoryResponse
		if err := c.Execute(ctx, locationInventoryQuery, vars, &resp); err != nil {
			return fmt.Errorf("inventory page %d: %w", page, err)
		}
		if resp.Location == nil {
			return fmt.Errorf("location %s not found", locationID)
		}
		levels := resp.Location.InventoryLevels
		batch := make([]InventoryLevel, 0, len(levels.Edges))
		for _, edge := range levels.Edges {
			n := edge.Node
			lvl := InventoryLevel{Available: available(n.Quantities)}
			if n.Item.SKU != nil {
				lvl.SKU = *n.Item.SKU
			}
			if v := n.Item.Variant; v != nil {
				if v.SKU != nil && *v.SKU != "" {
					lvl.SKU = *v.SKU
				}
				lvl.VariantTitle = v.Title
				lvl.ProductTitle = v.Product.Title
				if v.Barcode != nil {
					lvl.Barcode = *v.Barcode
				}
			}
			batch = append(batch, lvl)
		}
		if err := fn(page, batch); err != nil {
			return err
		}
		if !levels.PageInfo.HasNextPage || levels.PageInfo.EndCursor == nil {
			return nil
		}
		vars["cursor"] = *levels.PageInfo.EndCursor
	}
}
