package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/samber/oops"

	"github.com/oksasatya/appserv/internal/domain/entity"
)

// NewESClient creates an Elasticsearch client with bounded timeouts and optional basic auth.
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addrs,
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	})
}

// UserDoc is the searchable projection of an account. It never carries the password hash.
type UserDoc struct {
	ID         int64  `json:"id"`
	UserName   string `json:"user_name"`
	Email      string `json:"email"`
	Status     string `json:"status"`
	UpdateTime int64  `json:"update_time"`
}

func DocOf(u *entity.User) UserDoc {
	return UserDoc{ID: u.ID, UserName: u.UserName, Email: u.Email, Status: string(u.Status), UpdateTime: u.UpdateTime}
}

// UserIndex writes and queries the users index. A nil *UserIndex is a valid no-op index.
type UserIndex struct {
	es      *elasticsearch.Client
	index   string
	timeout time.Duration
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	if es == nil || index == "" {
		return nil
	}
	return &UserIndex{es: es, index: index, timeout: 3 * time.Second}
}

func (x *UserIndex) Enabled() bool { return x != nil }

func (x *UserIndex) Index(ctx context.Context, doc UserDoc) error {
	if x == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: strconv.FormatInt(doc.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	res, err := req.Do(c, x.es)
	if err != nil {
		return oops.In("search").With("user_id", doc.ID).Wrapf(err, "index user")
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return oops.In("search").With("user_id", doc.ID).With("status", res.Status()).Errorf("index user rejected")
	}
	return nil
}

// Search runs a multi_match over email and user name. size outside (0, 50] falls back to 10.
func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]UserDoc, error) {
	if x == nil {
		return []UserDoc{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "user_name"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, oops.In("search").Wrapf(err, "search users")
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, oops.In("search").With("status", res.Status()).Errorf("search users rejected")
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source UserDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, oops.In("search").Wrapf(err, "decode search response")
	}
	out := make([]UserDoc, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
