// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

// Package metainfo implements the HTTP client for the platform metadata
// service.
package metainfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"lookupd.io/lookupd/pkg/lookup"
	"lookupd.io/lookupd/pkg/paths"
)

var (
	// Error is the default metainfo error class.
	Error = errs.Class("metainfo error")

	mon = monkit.Package()
)

// objectKind is the knowledge object type for lookup datasets.
const objectKind = "lookup-table-files"

// Client talks to the metadata service over HTTP. The session key is
// supplied per call; the client holds no mutable state and is safe for
// concurrent use.
type Client struct {
	log  *zap.Logger
	base string
	http *http.Client
}

// NewClient creates a metadata client for the service at address.
func NewClient(log *zap.Logger, address string, timeout time.Duration) *Client {
	return &Client{
		log:  log,
		base: address,
		http: &http.Client{Timeout: timeout},
	}
}

type objectResponse struct {
	Namespace string `json:"namespace"`
	Owner     string `json:"owner"`
}

type appsResponse struct {
	Apps []string `json:"apps"`
}

// ResolveObject returns the owning scope of the named lookup as
// registered in exactly the given namespace/owner scope. A missing
// object is not an error; it reports Exists false.
func (client *Client) ResolveObject(ctx context.Context, name, namespace, owner, session string) (_ lookup.Object, err error) {
	defer mon.Task()(&ctx)(&err)

	query := url.Values{}
	query.Set("namespace", namespace)
	query.Set("owner", paths.OwnerDir(owner))
	endpoint := fmt.Sprintf("%s/api/objects/%s/%s?%s", client.base, objectKind, url.PathEscape(name), query.Encode())

	var object objectResponse
	found, err := client.get(ctx, endpoint, session, &object)
	if err != nil {
		return lookup.Object{}, err
	}
	if !found {
		return lookup.Object{}, nil
	}

	return lookup.Object{
		Namespace: object.Namespace,
		Owner:     paths.NormalizeOwner(object.Owner),
		Exists:    true,
	}, nil
}

// ListVisibleApps returns the applications visible from namespace, in
// precedence order.
func (client *Client) ListVisibleApps(ctx context.Context, namespace, session string) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	endpoint := fmt.Sprintf("%s/api/apps/visible?namespace=%s", client.base, url.QueryEscape(namespace))

	var apps appsResponse
	found, err := client.get(ctx, endpoint, session, &apps)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return apps.Apps, nil
}

// get performs an authenticated GET and decodes the JSON body. It
// returns false without error on 404 and maps the remaining upstream
// failures onto the lookup error classes unchanged in meaning.
func (client *Client) get(ctx context.Context, endpoint, session string, out interface{}) (found bool, err error) {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return false, Error.Wrap(err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+session)

	resp, err := client.http.Do(req)
	if err != nil {
		return false, lookup.ErrConnection.Wrap(err)
	}
	defer func() { err = errs.Combine(err, resp.Body.Close()) }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, lookup.ErrAuth.New("%s rejected session", client.base)
	default:
		return false, Error.New("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, Error.Wrap(err)
	}
	return true, nil
}

var _ lookup.MetadataService = (*Client)(nil)
