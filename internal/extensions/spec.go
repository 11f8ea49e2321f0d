package extensions

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/fora-sh/fora/pkg/models"
)

// registryRe matches composer references like "fof/polls:*" or
// "flarum/lang-german:^1.0".
var registryRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*/[a-z0-9][a-z0-9_.-]*:[^\s]+$`)

// archivePathRe matches github archive paths: /owner/repo/archive/<ref>.zip
// with an optional refs/heads or refs/tags segment.
var archivePathRe = regexp.MustCompile(`^/([^/]+)/([^/]+)/archive/(?:refs/(?:heads|tags)/)?(.+)\.zip$`)

// ResolveSpec parses one line of the extension list into an ExtensionSpec.
// This is the only place spec lines are interpreted; both the runtime
// install flow and any future image-build flow must go through it.
//
// A line is either a composer registry reference (vendor/name:constraint)
// or a URL. URLs may carry ?directory=NAME&token=SECRET in either order;
// both parameters are stripped from the URL itself. A github.com archive
// URL with a token is rewritten to the authenticated API zipball endpoint,
// whose archives nest content under a synthetic top-level folder.
func ResolveSpec(line string) (models.ExtensionSpec, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return models.ExtensionSpec{}, fmt.Errorf("empty extension spec")
	}

	if !strings.Contains(line, "://") {
		if !registryRe.MatchString(line) {
			return models.ExtensionSpec{}, fmt.Errorf("invalid extension spec %q: want vendor/name:constraint or a URL", line)
		}
		return models.ExtensionSpec{Registry: line}, nil
	}

	u, err := url.Parse(line)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return models.ExtensionSpec{}, fmt.Errorf("invalid extension URL %q", line)
	}

	query := u.Query()
	spec := models.ExtensionSpec{
		Directory: query.Get("directory"),
		Token:     query.Get("token"),
	}
	query.Del("directory")
	query.Del("token")
	u.RawQuery = query.Encode()

	if u.Host == "github.com" && spec.Token != "" {
		if m := archivePathRe.FindStringSubmatch(u.Path); m != nil {
			owner, repo, ref := m[1], m[2], m[3]
			u = &url.URL{
				Scheme: "https",
				Host:   "api.github.com",
				Path:   fmt.Sprintf("/repos/%s/%s/zipball/%s", owner, repo, ref),
			}
			spec.Wrapped = true
			if spec.Directory == "" {
				spec.Directory = repo
			}
		}
	}
	if u.Host == "api.github.com" && strings.Contains(u.Path, "/zipball/") {
		spec.Wrapped = true
	}

	spec.URL = u.String()
	if spec.Directory == "" {
		spec.Directory = deriveDirectory(u.Path)
	}
	if spec.Directory == "" {
		return models.ExtensionSpec{}, fmt.Errorf("cannot derive a directory name from %q, add ?directory=NAME", line)
	}

	return spec, nil
}

func deriveDirectory(urlPath string) string {
	base := path.Base(urlPath)
	base = strings.TrimSuffix(base, ".zip")
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// ExtensionID converts a spec into the identifier the application uses to
// register it: vendor-name for registry refs, the directory name otherwise.
func ExtensionID(spec models.ExtensionSpec) string {
	if spec.FromRegistry() {
		ref, _, _ := strings.Cut(spec.Registry, ":")
		return strings.ReplaceAll(ref, "/", "-")
	}
	return spec.Directory
}
