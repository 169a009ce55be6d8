package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"affconsole/internal/models"
)

const (
	pathAffiliators = "/affiliators"
	pathCustomers   = "/customers"
	pathPayments    = "/payments"
)

func listResource[T any](ctx context.Context, c *Client, path string, p models.ListParams) (models.Page[T], error) {
	p = p.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.Limit))
	if p.Search != "" {
		q.Set("search", p.Search)
	}

	var env models.Envelope[[]T]
	if err := c.doJSON(ctx, http.MethodGet, path, q, nil, &env); err != nil {
		return models.Page[T]{}, err
	}

	page := models.Page[T]{Items: env.Data}
	if env.Pagination != nil {
		page.Pagination = *env.Pagination
	} else {
		page.Pagination = models.Pagination{Page: 1, Limit: len(env.Data), Total: len(env.Data), TotalPages: 1}
	}
	return page, nil
}

// collectAll walks every page of a list endpoint. The listing surface filters
// and paginates on the client, so it needs the whole collection.
func collectAll[T any](ctx context.Context, c *Client, path string, search string) ([]T, error) {
	var all []T
	p := models.ListParams{Page: 1, Limit: models.MaxLimit, Search: search}
	for {
		page, err := listResource[T](ctx, c, path, p)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if len(page.Items) == 0 || page.Pagination.Page >= page.Pagination.TotalPages {
			return all, nil
		}
		p.Page++
	}
}

func getResource[T any](ctx context.Context, c *Client, path, id string) (T, error) {
	var env models.Envelope[T]
	if err := c.requireID(id); err != nil {
		return env.Data, err
	}
	err := c.doJSON(ctx, http.MethodGet, path+"/"+url.PathEscape(id), nil, nil, &env)
	return env.Data, err
}

func createResource[T any, In any](ctx context.Context, c *Client, path string, in In) (T, error) {
	var env models.Envelope[T]
	if err := c.validateInput(in); err != nil {
		return env.Data, err
	}
	err := c.doJSON(ctx, http.MethodPost, path, nil, in, &env)
	return env.Data, err
}

func updateResource[T any, In any](ctx context.Context, c *Client, path, id string, in In) (T, error) {
	var env models.Envelope[T]
	if err := c.requireID(id); err != nil {
		return env.Data, err
	}
	if err := c.validateInput(in); err != nil {
		return env.Data, err
	}
	err := c.doJSON(ctx, http.MethodPut, path+"/"+url.PathEscape(id), nil, in, &env)
	return env.Data, err
}

func deleteResource(ctx context.Context, c *Client, path, id string) error {
	if err := c.requireID(id); err != nil {
		return err
	}
	var ack models.Ack
	return c.doJSON(ctx, http.MethodDelete, path+"/"+url.PathEscape(id), nil, nil, &ack)
}

func (c *Client) ListAffiliators(ctx context.Context, p models.ListParams) (models.Page[models.Affiliator], error) {
	return listResource[models.Affiliator](ctx, c, pathAffiliators, p)
}

func (c *Client) AllAffiliators(ctx context.Context, search string) ([]models.Affiliator, error) {
	return collectAll[models.Affiliator](ctx, c, pathAffiliators, search)
}

func (c *Client) GetAffiliator(ctx context.Context, id string) (models.Affiliator, error) {
	return getResource[models.Affiliator](ctx, c, pathAffiliators, id)
}

func (c *Client) CreateAffiliator(ctx context.Context, in models.AffiliatorInput) (models.Affiliator, error) {
	if in.Password == "" {
		return models.Affiliator{}, newError(c.msgs, KindValidation, 0, "Password (required)", nil)
	}
	return createResource[models.Affiliator](ctx, c, pathAffiliators, in)
}

func (c *Client) UpdateAffiliator(ctx context.Context, id string, in models.AffiliatorInput) (models.Affiliator, error) {
	return updateResource[models.Affiliator](ctx, c, pathAffiliators, id, in)
}

func (c *Client) DeleteAffiliator(ctx context.Context, id string) error {
	return deleteResource(ctx, c, pathAffiliators, id)
}

func (c *Client) AffiliatorSummary(ctx context.Context, id string) (models.AffiliatorSummary, error) {
	var env models.Envelope[models.AffiliatorSummary]
	if err := c.requireID(id); err != nil {
		return env.Data, err
	}
	err := c.doJSON(ctx, http.MethodGet, pathAffiliators+"/"+url.PathEscape(id)+"/summary", nil, nil, &env)
	return env.Data, err
}

func (c *Client) ListCustomers(ctx context.Context, p models.ListParams) (models.Page[models.Customer], error) {
	return listResource[models.Customer](ctx, c, pathCustomers, p)
}

func (c *Client) AllCustomers(ctx context.Context, search string) ([]models.Customer, error) {
	return collectAll[models.Customer](ctx, c, pathCustomers, search)
}

func (c *Client) GetCustomer(ctx context.Context, id string) (models.Customer, error) {
	return getResource[models.Customer](ctx, c, pathCustomers, id)
}

func (c *Client) CreateCustomer(ctx context.Context, in models.CustomerInput) (models.Customer, error) {
	return createResource[models.Customer](ctx, c, pathCustomers, in)
}

func (c *Client) UpdateCustomer(ctx context.Context, id string, in models.CustomerInput) (models.Customer, error) {
	return updateResource[models.Customer](ctx, c, pathCustomers, id, in)
}

func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	return deleteResource(ctx, c, pathCustomers, id)
}

func (c *Client) ListPayments(ctx context.Context, p models.ListParams) (models.Page[models.Payment], error) {
	return listResource[models.Payment](ctx, c, pathPayments, p)
}

func (c *Client) AllPayments(ctx context.Context, search string) ([]models.Payment, error) {
	return collectAll[models.Payment](ctx, c, pathPayments, search)
}

func (c *Client) GetPayment(ctx context.Context, id string) (models.Payment, error) {
	return getResource[models.Payment](ctx, c, pathPayments, id)
}

func (c *Client) CreatePayment(ctx context.Context, in models.PaymentInput) (models.Payment, error) {
	return createResource[models.Payment](ctx, c, pathPayments, in)
}

func (c *Client) UpdatePayment(ctx context.Context, id string, in models.PaymentInput) (models.Payment, error) {
	return updateResource[models.Payment](ctx, c, pathPayments, id, in)
}

func (c *Client) DeletePayment(ctx context.Context, id string) error {
	return deleteResource(ctx, c, pathPayments, id)
}

// MyCustomers lists the customers of the logged-in affiliator.
func (c *Client) MyCustomers(ctx context.Context) ([]models.Customer, error) {
	var env models.Envelope[[]models.Customer]
	err := c.doJSON(ctx, http.MethodGet, "/affiliator/customers", nil, nil, &env)
	return env.Data, err
}

// MyPayments lists the payments made to the logged-in affiliator.
func (c *Client) MyPayments(ctx context.Context) ([]models.Payment, error) {
	var env models.Envelope[[]models.Payment]
	err := c.doJSON(ctx, http.MethodGet, "/affiliator/payments", nil, nil, &env)
	return env.Data, err
}
