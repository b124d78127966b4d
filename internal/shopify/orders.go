package shopify

import (
	"context"
	"errors"
	"fmt"
)

const ordersByTagAndSKUsQuery = `query GetOrdersByTagAndSKUs($cursor: String, $query: String, $pageSize: Int!) {
  orders(first: $pageSize, after: $cursor, query: $query) {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id
        createdAt
        lineItems(first: 250) {
          edges { node { sku quantity } }
        }
      }
    }
  }
}`

var ErrNoSKUs = errors.New("sales query needs at least one SKU")

// SalesQuery selects orders carrying Tag, created inside Range, that contain
// at least one of SKUs.
type SalesQuery struct {
	SKUs     []string
	Tag      string
	Range    DateRange
	PageSize int
}

// Filter renders the orders search expression.
func (q SalesQuery) Filter() string {
	return q.Range.filter() + " AND tag:" + searchValue(q.Tag) + " AND " + orTerms("sku", q.SKUs)
}

// ProgressFunc is called after every page with the page number and the
// number of orders seen so far.
type ProgressFunc func(page, orders int)

type ordersResponse struct {
	Orders struct {
		PageInfo struct {
			HasNextPage bool    `json:"hasNextPage"`
			EndCursor   *string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node struct {
				ID        string `json:"id"`
				CreatedAt string `json:"createdAt"`
				LineItems struct {
					Edges []struct {
						Node struct {
							SKU      *string `json:"sku"`
							Quantity int     `json:"quantity"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"lineItems"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"orders"`
}

// SalesBySKUs pages through every matching order and sums line item
// quantities per SKU. Line items for SKUs outside the query are summed too;
// callers decide which keys they keep.
//
// On error the map holds whatever was summed before the failing page.
func (c *Client) SalesBySKUs(ctx context.Context, q SalesQuery, progress ProgressFunc) (map[string]int, error) {
	sales := map[string]int{}
	if len(q.SKUs) == 0 {
		return sales, ErrNoSKUs
	}
	pageSize := q.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	vars := map[string]interface{}{
		"query":    q.Filter(),
		"pageSize": pageSize,
		"cursor":   nil,
	}

	page, orders := 0, 0
	for {
		page++
		var resp ordersResponse
		if err := c.Execute(ctx, ordersByTagAndSKUsQuery, vars, &resp); err != nil {
			return sales, fmt.Errorf("orders page %d: %w", page, err)
		}
		for _, edge := range resp.Orders.Edges {
			orders++
			for _, li := range edge.Node.LineItems.Edges {
				if li.Node.SKU == nil || *li.Node.SKU == "" {
					continue
				}
				sales[*li.Node.SKU] += li.Node.Quantity
			}
		}
		if progress != nil {
			progress(page, orders)
		}

		info := resp.Orders.PageInfo
		if !info.HasNextPage || info.EndCursor == nil {
			return sales, nil
		}
		vars["cursor"] = *info.EndCursor
	}
}
