package solver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sdboyer/constext"
)

// DefaultCatalogURL is the public source-catalog RPC endpoint.
const DefaultCatalogURL = "https://aur.archlinux.org/rpc/"

// SourceRepository queries a remote recipe catalog over its JSON RPC and
// materializes the answers as SourcePackages. It holds a base context so
// the owner can cancel every in-flight query at once; per-call deadlines
// conjoin with it.
//
// The repository itself performs no caching; wrap it in a
// CachedRepository.
type SourceRepository struct {
	endpoint string
	client   *http.Client
	baseCtx  context.Context
}

// NewSourceRepository points at endpoint (DefaultCatalogURL when empty).
// The base context bounds the repository's lifetime.
func NewSourceRepository(ctx context.Context, endpoint string) *SourceRepository {
	if endpoint == "" {
		endpoint = DefaultCatalogURL
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &SourceRepository{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		baseCtx:  ctx,
	}
}

// catalogResponse is the RPC reply envelope.
type catalogResponse struct {
	Type    string        `json:"type"`
	Error   string        `json:"error"`
	Results []catalogInfo `json:"results"`
}

type catalogInfo struct {
	Name        string   `json:"Name"`
	PackageBase string   `json:"PackageBase"`
	Version     string   `json:"Version"`
	Description string   `json:"Description"`
	URL         string   `json:"URL"`
	Maintainer  string   `json:"Maintainer"`
	Popularity  float64  `json:"Popularity"`
	OutOfDate   int64    `json:"OutOfDate"`
	Depends     []string `json:"Depends"`
	MakeDepends []string `json:"MakeDepends"`
	Conflicts   []string `json:"Conflicts"`
	Provides    []string `json:"Provides"`
	Replaces    []string `json:"Replaces"`
}

func (ci catalogInfo) toPackage() SourcePackage {
	return SourcePackage{
		PackageBase: PackageBase{
			PkgName:        ci.Name,
			PkgVersion:     Version(ci.Version),
			PkgDesc:        ci.Description,
			PkgURL:         ci.URL,
			PkgDepends:     parseDepends(ci.Depends),
			PkgMakeDepends: parseDepends(ci.MakeDepends),
			PkgConflicts:   parseDepends(ci.Conflicts),
			PkgProvides:    parseDepends(ci.Provides),
			PkgReplaces:    parseDepends(ci.Replaces),
		},
		PackageBaseName: ci.PackageBase,
		Maintainer:      ci.Maintainer,
		Popularity:      ci.Popularity,
		OutOfDate:       ci.OutOfDate != 0,
	}
}

func parseDepends(ss []string) []Depend {
	out := make([]Depend, 0, len(ss))
	for _, s := range ss {
		out = append(out, ParseDepend(s))
	}
	return out
}

// info performs one RPC info call for the given names.
func (r *SourceRepository) info(names []string) ([]catalogInfo, error) {
	// Conjoin the repository's lifetime with a per-call deadline; the
	// query dies when either expires.
	callCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx, cancelFunc := constext.Cons(r.baseCtx, callCtx)
	defer cancelFunc()

	q := url.Values{}
	q.Set("v", "5")
	q.Set("type", "info")
	for _, n := range names {
		q.Add("arg[]", n)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, repoErr("catalog", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, repoErr("catalog", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, repoErr("catalog", errors.Errorf("unexpected status %s", resp.Status))
	}

	var decoded catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, repoErr("catalog", errors.Wrap(err, "malformed RPC reply"))
	}
	if decoded.Type == "error" {
		return nil, repoErr("catalog", errors.New(decoded.Error))
	}
	return decoded.Results, nil
}

func (r *SourceRepository) FindPackage(d Depend) ([]Package, error) {
	infos, err := r.info([]string{d.Name})
	if err != nil {
		return nil, err
	}

	var result []Package
	for _, ci := range infos {
		p := ci.toPackage()
		if d.SatisfiedBy(p) {
			result = append(result, p)
		}
	}
	sortCandidates(result, d.Name)
	return result, nil
}

// FindPackages batches every demanded name into a single RPC round trip.
func (r *SourceRepository) FindPackages(ds []Depend) (map[string][]Package, error) {
	names := make([]string, 0, len(ds))
	seen := make(map[string]bool, len(ds))
	for _, d := range ds {
		if !seen[d.Name] {
			seen[d.Name] = true
			names = append(names, d.Name)
		}
	}

	infos, err := r.info(names)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]Package, len(ds))
	for _, d := range ds {
		var result []Package
		for _, ci := range infos {
			p := ci.toPackage()
			if d.SatisfiedBy(p) {
				result = append(result, p)
			}
		}
		sortCandidates(result, d.Name)
		out[d.key()] = result
	}
	return out, nil
}
