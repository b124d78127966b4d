package shopify

import "context"

type Shop struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CurrencyCode  string `json:"currencyCode"`
	PrimaryDomain struct {
		URL string `json:"url"`
	} `json:"primaryDomain"`
}

type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// Shop doubles as the connection test.
func (c *Client) Shop(ctx context.Context) (*Shop, error) {
	var resp struct {
		Shop Shop `json:"shop"`
	}
	err := c.Execute(ctx, `query { shop { name email currencyCode primaryDomain { url } } }`, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Shop, nil
}

func (c *Client) Locations(ctx context.Context) ([]Location, error) {
	var resp struct {
		Locations struct {
			Edges []struct {
				Node Location `json:"node"`
			} `json:"edges"`
		} `json:"locations"`
	}
	err := c.Execute(ctx, `query { locations(first: 50) { edges { node { id name isActive } } } }`, nil, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]Location, 0, len(resp.Locations.Edges))
	for _, e := range resp.Locations.Edges {
		out = append(out, e.Node)
	}
	return out, nil
}
