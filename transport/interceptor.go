package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core/apierror"
)

const refreshPath = "/auth/refresh"

type refreshData struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// roundTrip sends req and handles its response:
// a 401 is answered by one refresh and one retry, any other failure is normalized.
func (c *Client) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	res, err := c.send(ctx, req)
	if err != nil {
		return nil, apierror.Network(err)
	}
	if res.Status < http.StatusBadRequest {
		return res, nil
	}

	if res.Status == http.StatusUnauthorized && !req.Retried && !req.noRefresh {
		req.Retried = true
		if err := c.refresh(ctx, req.token); err != nil {
			return nil, err
		}
		res, err = c.send(ctx, req)
		if err != nil {
			return nil, apierror.Network(err)
		}
		if res.Status < http.StatusBadRequest {
			return res, nil
		}
	}
	return nil, c.fail(req, res)
}

// fail normalizes an error response. A 404 about the tenant sends the user to the tenant-not-found route.
func (c *Client) fail(req *Request, res *Response) error {
	apiErr := apierror.FromResponse(res.Status, res.Body)
	if res.Status == http.StatusNotFound && req.tenant.TenantScoped() && apiErr.MentionsTenant() {
		c.nav.Navigate(c.tenantNotFoundRoute)
	}
	return apiErr
}

// refresh rotates the session after a 401 received with failedToken.
// Concurrent refreshes are coalesced, and a request whose token was already rotated
// retries with the current token without refreshing again.
func (c *Client) refresh(ctx context.Context, failedToken string) error {
	if done, err := c.refreshed(failedToken); done {
		return err
	}
	_, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		if done, err := c.refreshed(failedToken); done {
			return nil, err
		}

		// one caller giving up must not abort the refresh shared with the others
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		if err := c.doRefresh(ctx); err != nil {
			c.metrics.refreshed(false)
			c.logger.Warn("refreshing session failed, signing out", err)
			if clearErr := c.sessions.Clear(); clearErr != nil {
				c.logger.Error("clearing session", clearErr)
			}
			c.nav.Navigate(c.loginRoute)
			return nil, err
		}
		c.metrics.refreshed(true)
		return nil, nil
	})
	return err
}

// refreshed reports whether the session changed since failedToken was sent:
// rotated, the request can be retried; cleared, the user was signed out meanwhile.
func (c *Client) refreshed(failedToken string) (bool, error) {
	curr := c.sessions.AccessToken()
	switch {
	case curr != "" && curr != failedToken:
		return true, nil
	case curr == "" && failedToken != "":
		return true, apierror.New(apierror.KindUnauthorized, http.StatusUnauthorized, "", nil)
	}
	return false, nil
}

func (c *Client) doRefresh(ctx context.Context) error {
	sess, err := c.sessions.Get()
	if err != nil {
		return apierror.Normalize(err)
	}
	if sess.RefreshToken == "" {
		return apierror.New(apierror.KindUnauthorized, http.StatusUnauthorized, "", nil)
	}

	body, err := json.Marshal(map[string]string{"refreshToken": sess.RefreshToken})
	if err != nil {
		return apierror.Normalize(errors.Wrap(err, "encoding refresh body"))
	}
	req := &Request{
		Method:      http.MethodPost,
		Path:        refreshPath,
		Header:      make(http.Header),
		Body:        body,
		ContentType: "application/json",
		Timeout:     c.timeout,
		Retried:     true,
		noRefresh:   true,
		noAuth:      true,
	}
	res, err := c.send(ctx, req)
	if err != nil {
		return apierror.Network(err)
	}
	if res.Status >= http.StatusBadRequest {
		return apierror.FromResponse(res.Status, res.Body)
	}

	env, err := decodeEnvelope(res)
	if err != nil {
		return err
	}
	var data refreshData
	if err := env.Decode(&data); err != nil || data.Token == "" {
		return apierror.New(apierror.KindUnauthorized, res.Status, "Invalid refresh response.", err)
	}
	if err := c.sessions.Rotate(data.Token, data.RefreshToken); err != nil {
		return apierror.Normalize(errors.Wrap(err, "storing refreshed session"))
	}
	c.logger.Debug(fmt.Sprintf("session refreshed (%s)", res.Elapsed))
	return nil
}
