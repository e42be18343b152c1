package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"regexp"
	"strings"

	"github.com/maltedev/storefront-scraper/internal/errs"
)

var (
	ErrInvalidProxyFormat = errors.New("proxy format is invalid")
	ErrEmptyUserAgentPool = errors.New("no user agents found")
)

var proxyPattern = regexp.MustCompile(`^http://(.*?):(.*?)@(.*):(\d+)`)

// Proxy is the PROXY secret split the way a browser context wants it.
type Proxy struct {
	Server   string
	Username string
	Password string
	// URL is the unsplit value, for HTTP clients.
	URL string
}

// ParseProxy parses http://<user>:<password>@<host>:<port>.
func ParseProxy(raw string) (*Proxy, error) {
	m := proxyPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, errs.Configuration("failed to parse PROXY", ErrInvalidProxyFormat)
	}
	return &Proxy{
		Server:   fmt.Sprintf("http://%s:%s", m[3], m[4]),
		Username: m[1],
		Password: m[2],
		URL:      raw,
	}, nil
}

// LoadUserAgents reads the user_agent column of the CSV file at path.
func LoadUserAgents(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Configuration(fmt.Sprintf("failed to open user agents file %s", path), err)
	}
	defer f.Close()

	agents, err := readUserAgents(f)
	if err != nil {
		return nil, errs.Configuration(fmt.Sprintf("failed to read user agents from %s", path), err)
	}
	return agents, nil
}

func readUserAgents(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyUserAgentPool
	}
	if err != nil {
		return nil, err
	}

	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "user_agent" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no user_agent column in header %v", header)
	}

	var agents []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if col < len(record) && strings.TrimSpace(record[col]) != "" {
			agents = append(agents, strings.TrimSpace(record[col]))
		}
	}

	if len(agents) == 0 {
		return nil, ErrEmptyUserAgentPool
	}
	return agents, nil
}

// RequestHeaders picks a random user agent from agents and pairs it with the
// configured Accept and Accept-Language values.
func RequestHeaders(settings ProxySettings, agents []string) (map[string]string, error) {
	if len(agents) == 0 {
		return nil, errs.Configuration("failed to build request headers", ErrEmptyUserAgentPool)
	}

	headers := map[string]string{
		"User-Agent": agents[rand.Intn(len(agents))],
	}
	if settings.AcceptLanguage != "" {
		headers["Accept-Language"] = settings.AcceptLanguage
	}
	if settings.Accept != "" {
		headers["Accept"] = settings.Accept
	}
	return headers, nil
}
