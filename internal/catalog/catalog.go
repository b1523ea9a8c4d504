package catalog

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shaiso/Feedactions/internal/action"
)

// Kind — способ выполнения действия.
type Kind string

const (
	// KindWget — загрузка внешней программой wget в Dir.
	KindWget Kind = "wget"

	// KindDownload — загрузка встроенной функцией download в Dir.
	KindDownload Kind = "download"

	// KindLocal — локальная команда из шаблона Command.
	KindLocal Kind = "local"

	// KindSSH — команда RemoteCommand на хосте Host.
	KindSSH Kind = "ssh"

	// KindOpen — открыть URL через xdg-open.
	KindOpen Kind = "open"
)

// Definition — именованное действие пользователя.
type Definition struct {
	Name  string `yaml:"name" json:"name"`
	Title string `yaml:"title" json:"title"`
	Kind  Kind   `yaml:"kind" json:"kind"`

	// Command — argv для KindLocal, токены могут содержать {url}.
	Command []string `yaml:"command,omitempty" json:"command,omitempty"`

	// SSH
	Host          string `yaml:"host,omitempty" json:"host,omitempty"`
	RemoteCommand string `yaml:"remote_command,omitempty" json:"remote_command,omitempty"`
	IdentityFile  string `yaml:"identity_file,omitempty" json:"identity_file,omitempty"`
	Port          int    `yaml:"port,omitempty" json:"port,omitempty"`

	// Dir — каталог загрузок для KindWget и KindDownload (переменные окружения раскрываются).
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
}

// Validate проверяет обязательные поля определения.
func (d Definition) Validate() error {
	if d.Name == "" {
		return definitionError("", "name", "must not be empty")
	}

	switch d.Kind {
	case KindWget, KindDownload:
		if d.Dir == "" {
			return definitionError(d.Name, "dir", "required for "+string(d.Kind))
		}
	case KindLocal:
		if len(d.Command) == 0 || d.Command[0] == "" {
			return definitionError(d.Name, "command", "required for local")
		}
	case KindSSH:
		if d.Host == "" || d.RemoteCommand == "" {
			return definitionError(d.Name, "host", "host and remote_command are required for ssh")
		}
		if d.Port < 0 || d.Port > 65535 {
			return definitionError(d.Name, "port", fmt.Sprintf("out of range: %d", d.Port))
		}
	case KindOpen:
	default:
		return definitionError(d.Name, "kind", fmt.Sprintf("unknown kind %q", d.Kind))
	}
	return nil
}

// Catalog — набор определений по имени.
type Catalog struct {
	defs     map[string]Definition
	registry *action.Registry
}

// New создаёт каталог. reg == nil — реестр по умолчанию.
func New(reg *action.Registry, defs []Definition) (*Catalog, error) {
	if reg == nil {
		reg = action.Default()
	}

	c := &Catalog{defs: make(map[string]Definition, len(defs)), registry: reg}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.defs[d.Name]; ok {
			return nil, definitionError(d.Name, "name", "duplicate action name")
		}
		if d.Title == "" {
			d.Title = d.Name
		}
		c.defs[d.Name] = d
	}
	return c, nil
}

// Defaults — действия по умолчанию.
func Defaults() []Definition {
	return []Definition{
		{Name: "download", Title: "download", Kind: KindDownload, Dir: "$HOME/Downloads"},
		{Name: "wget", Title: "download with wget", Kind: KindWget, Dir: "$HOME/Downloads"},
		{Name: "play", Title: "play with mpv", Kind: KindLocal, Command: []string{"mpv", "--", "{url}"}},
		{Name: "open", Title: "open", Kind: KindOpen},
	}
}

// Get возвращает определение по имени.
func (c *Catalog) Get(name string) (Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// List возвращает определения, отсортированные по имени.
func (c *Catalog) List() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Build строит action для URL.
//
// Ошибки: ErrUnknownAction, ErrEmptyURL, ErrBadURL, ErrNotAllowed
// и action.ErrValidation, если получившиеся операции некорректны.
func (c *Catalog) Build(name, rawURL string) (*action.Action, error) {
	d, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	link := SanitizeURL(rawURL)
	if link == "" {
		return nil, ErrEmptyURL
	}
	if err := checkURL(link); err != nil {
		return nil, err
	}

	op, err := d.operation(link)
	if err != nil {
		return nil, err
	}
	return action.NewNamed(c.registry, d.Name, op)
}

// operation переводит определение в одну операцию action.
func (d Definition) operation(url string) (action.Operation, error) {
	switch d.Kind {
	case KindWget:
		dir, err := downloadDir(d.Dir)
		if err != nil {
			return action.Operation{}, err
		}
		return action.Spawn("wget", "--directory-prefix", dir, "--", url), nil

	case KindDownload:
		dir, err := downloadDir(d.Dir)
		if err != nil {
			return action.Operation{}, err
		}
		return action.Call("download", url, dir), nil

	case KindLocal:
		argv := make([]string, len(d.Command))
		for i, token := range d.Command {
			argv[i] = substitute(token, url)
		}
		return action.Spawn(argv...), nil

	case KindSSH:
		argv := []string{"ssh"}
		if d.Port != 0 {
			argv = append(argv, "-p", strconv.Itoa(d.Port))
		}
		if d.IdentityFile != "" {
			argv = append(argv, "-i", d.IdentityFile)
		}
		argv = append(argv, d.Host, substitute(d.RemoteCommand, url))
		return action.Spawn(argv...), nil

	case KindOpen:
		return action.Spawn("xdg-open", url), nil

	default:
		return action.Operation{}, definitionError(d.Name, "kind", fmt.Sprintf("unknown kind %q", d.Kind))
	}
}

// SanitizeURL удаляет одинарные и двойные кавычки и обратные слеши.
func SanitizeURL(url string) string {
	return strings.NewReplacer("'", "", `"`, "", `\`, "").Replace(strings.TrimSpace(url))
}

// checkURL пропускает только абсолютные http(s) URL.
// URL попадает в argv внешних программ, поэтому ведущий "-" запрещён.
func checkURL(link string) error {
	if strings.HasPrefix(link, "-") {
		return fmt.Errorf("%w: %q looks like an option", ErrBadURL, link)
	}
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrBadURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrBadURL, link)
	}
	return nil
}

func substitute(token, url string) string {
	return strings.ReplaceAll(token, "{url}", url)
}

// downloadDir раскрывает переменные окружения и проверяет, что каталог существует.
func downloadDir(dir string) (string, error) {
	expanded := os.ExpandEnv(dir)
	info, err := os.Stat(expanded)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: download directory %q does not exist", ErrNotAllowed, expanded)
	}
	return expanded, nil
}
