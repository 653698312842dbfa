package trackql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"time"

	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/astoko/ParcelBuddy/config"
	"github.com/astoko/ParcelBuddy/internal/integrations/carrier"
	"github.com/astoko/ParcelBuddy/internal/models"
)

const defaultTimeout = 15 * time.Second

const carrierListQuery = `
query CarrierList($after: String) {
    carriers(first: 40, after: $after) {
        pageInfo {
            hasNextPage
            endCursor
        }
        edges {
            node {
                id
                name
                displayName
            }
        }
    }
}
`

const trackQuery = `
query Track($carrierId: ID!, $trackingNumber: String!) {
    track(carrierId: $carrierId, trackingNumber: $trackingNumber) {
        lastEvent {
            time
            status {
                code
                name
            }
            description
        }
        events(last: 10) {
            edges {
                node {
                    time
                    status {
                        code
                        name
                    }
                    description
                }
            }
        }
    }
}
`

// Client is a stateless TrackQL GraphQL client. Credentials are snapshotted
// from the holder on every call, so the set can be hot-swapped between calls.
type Client struct {
	creds *config.CredentialsHolder
	httpc *http.Client
}

func New(creds *config.CredentialsHolder) *Client {
	return &Client{
		creds: creds,
		httpc: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewStatic builds a client over a fixed credential set. Used by the
// test-credentials flow so it never touches the live holder.
func NewStatic(c config.Credentials) *Client {
	return New(config.NewCredentialsHolder(c))
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type wireEvent struct {
	Time   string `json:"time"`
	Status struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"status"`
	Description string `json:"description"`
}

type carrierListResponse struct {
	Data *struct {
		Carriers *struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Edges []struct {
				Node struct {
					ID          string `json:"id"`
					Name        string `json:"name"`
					DisplayName string `json:"displayName"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"carriers"`
	} `json:"data"`
}

type trackResponse struct {
	Data *struct {
		Track *struct {
			LastEvent *wireEvent `json:"lastEvent"`
			Events    *struct {
				Edges []struct {
					Node *wireEvent `json:"node"`
				} `json:"edges"`
			} `json:"events"`
		} `json:"track"`
	} `json:"data"`
}

func (c *Client) post(ctx context.Context, req gqlRequest, out any) error {
	creds := c.creds.Get()
	if !creds.Valid() {
		return errors.Wrap(carrier.ErrNetwork, "credentials are not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "marshal query")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.GraphQLURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "TRACKQL-API-KEY "+creds.ClientID+":"+creds.ClientSecret)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return errors.Wrap(carrier.ErrTimeout, "post graphql")
		}
		return errors.Wrapf(carrier.ErrNetwork, "post graphql: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.Wrapf(carrier.ErrNetwork, "graphql http %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(carrier.ErrNetwork, "decode response: %v", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	return stderrors.As(err, &uerr) && uerr.Timeout()
}

// ListCarriers pages through the carrier directory following
// hasNextPage/endCursor and returns the merged label -> ID mapping.
// Any failure mid-pagination fails the whole listing: no partial map.
func (c *Client) ListCarriers(ctx context.Context) (map[string]string, error) {
	carriers := make(map[string]string)
	var after *string

	for {
		var resp carrierListResponse
		err := c.post(ctx, gqlRequest{
			Query:     carrierListQuery,
			Variables: map[string]any{"after": after},
		}, &resp)
		if err != nil {
			return nil, errors.Wrapf(carrier.ErrDirectory, "list carriers: %v", err)
		}
		if resp.Data == nil || resp.Data.Carriers == nil {
			return nil, errors.Wrap(carrier.ErrDirectory, "carrier list response has no data")
		}

		for _, edge := range resp.Data.Carriers.Edges {
			node := edge.Node
			// displayName приоритетнее name, как в оригинальном каталоге.
			label := node.DisplayName
			if label == "" {
				label = node.Name
			}
			if label == "" {
				label = node.ID
			}
			carriers[label] = node.ID
		}

		page := resp.Data.Carriers.PageInfo
		if !page.HasNextPage {
			break
		}
		cursor := page.EndCursor
		after = &cursor
	}

	return carriers, nil
}

// FetchTracking issues one Track query. The returned events are normalized
// and sorted ascending by time.
func (c *Client) FetchTracking(ctx context.Context, carrierID, trackingNumber string) (carrier.FetchResult, error) {
	var resp trackResponse
	err := c.post(ctx, gqlRequest{
		Query: trackQuery,
		Variables: map[string]any{
			"carrierId":      carrierID,
			"trackingNumber": trackingNumber,
		},
	}, &resp)
	if err != nil {
		return carrier.FetchResult{}, err
	}

	if resp.Data == nil || resp.Data.Track == nil {
		return carrier.FetchResult{}, errors.Wrapf(carrier.ErrNoData, "carrier %s number %s", carrierID, trackingNumber)
	}
	track := resp.Data.Track

	var res carrier.FetchResult
	if track.LastEvent != nil {
		ev := toEvent(*track.LastEvent)
		res.LastEvent = &ev
	}
	if track.Events != nil {
		for _, edge := range track.Events.Edges {
			if edge.Node == nil {
				continue
			}
			res.Events = append(res.Events, toEvent(*edge.Node))
		}
	}

	sortEventsByTime(res.Events)
	return res, nil
}

func toEvent(w wireEvent) models.TrackingEvent {
	return models.TrackingEvent{
		Time:        NormalizeTime(w.Time),
		StatusCode:  w.Status.Code,
		StatusName:  w.Status.Name,
		Description: w.Description,
	}
}

// NormalizeTime converts an ISO-8601 Z-suffixed timestamp to
// "YYYY-MM-DD HH:MM:SS". A malformed timestamp is returned as-is: one broken
// field must not abort an otherwise usable fetch.
func NormalizeTime(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Format(models.EventTimeLayout)
}

func sortEventsByTime(events []models.TrackingEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		ti, iok := models.ParseEventTime(events[i].Time)
		tj, jok := models.ParseEventTime(events[j].Time)
		if !iok || !jok {
			// Нечитаемые таймстемпы не переупорядочиваем.
			return false
		}
		return ti.Before(tj)
	})
}
