package versionavailability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

// registryPackage is the shared shape of spec.md §6.2's community and
// Packagist endpoints: {package: {versions: {v -> {require: {...}}}}}.
type registryPackage struct {
	Package struct {
		Versions   map[string]registryVersion `json:"versions"`
		Repository string                      `json:"repository"`
	} `json:"package"`
}

type registryVersion struct {
	Require map[string]string `json:"require"`
}

// CommunityRegistryClient checks a key-indexed community registry
// (spec.md §6.2).
type CommunityRegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCommunityRegistryClient(baseURL string, httpClient *http.Client) *CommunityRegistryClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CommunityRegistryClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *CommunityRegistryClient) HasVersionFor(ctx context.Context, key string, target version.Version) (bool, error) {
	url := fmt.Sprintf("%s/packages/%s.json", c.baseURL, key)
	return fetchAndCheckCompatibility(ctx, c.httpClient, url, target)
}

// ComposerRegistryClient checks Packagist by composer name (spec.md
// §6.2) and exposes the repository URL for the git source.
type ComposerRegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewComposerRegistryClient(baseURL string, httpClient *http.Client) *ComposerRegistryClient {
	if baseURL == "" {
		baseURL = "https://packagist.org"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ComposerRegistryClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *ComposerRegistryClient) HasVersionFor(ctx context.Context, composerName string, target version.Version) (bool, error) {
	url := fmt.Sprintf("%s/packages/%s.json", c.baseURL, composerName)
	return fetchAndCheckCompatibility(ctx, c.httpClient, url, target)
}

// RepositoryURL fetches the package document again to extract its
// declared repository URL, used to seed the git source.
func (c *ComposerRegistryClient) RepositoryURL(ctx context.Context, composerName string) (string, error) {
	url := fmt.Sprintf("%s/packages/%s.json", c.baseURL, composerName)
	pkg, err := fetchRegistryPackage(ctx, c.httpClient, url)
	if err != nil {
		return "", err
	}
	return pkg.Package.Repository, nil
}

func fetchAndCheckCompatibility(ctx context.Context, client *http.Client, url string, target version.Version) (bool, error) {
	pkg, err := fetchRegistryPackage(ctx, client, url)
	if err != nil {
		return false, err
	}
	for _, v := range pkg.Package.Versions {
		if constraintCompatible(v.Require["typo3/cms-core"], target) {
			return true, nil
		}
	}
	return false, nil
}

func fetchRegistryPackage(ctx context.Context, client *http.Client, url string) (registryPackage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return registryPackage{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return registryPackage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return registryPackage{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return registryPackage{}, fmt.Errorf("versionavailability: unexpected status %d from %s", resp.StatusCode, url)
	}

	var pkg registryPackage
	if err := json.NewDecoder(resp.Body).Decode(&pkg); err != nil {
		return registryPackage{}, fmt.Errorf("versionavailability: decoding %s: %w", url, err)
	}
	return pkg, nil
}

var (
	wildcardConstraint = regexp.MustCompile(`^\*$`)
	majorXConstraint   = regexp.MustCompile(`^\^?(\d+)\.x$`)
	exactConstraint    = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)$`)
)

// constraintCompatible implements spec.md §6.2's constraint
// interpretation: wildcard always compatible; "^N.x"/"N.x" compatible
// iff the major matches target; an exact typo3/cms-core version is
// compatible iff major.minor match and patch >= target's.
func constraintCompatible(constraint string, target version.Version) bool {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return false
	}
	if wildcardConstraint.MatchString(constraint) {
		return true
	}
	if m := majorXConstraint.FindStringSubmatch(constraint); m != nil {
		return m[1] == fmt.Sprintf("%d", target.Major)
	}
	if m := exactConstraint.FindStringSubmatch(constraint); m != nil {
		major, minor, patch := atoiSafe(m[1]), atoiSafe(m[2]), atoiSafe(m[3])
		return major == target.Major && minor == target.Minor && patch >= target.Patch
	}
	return false
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
