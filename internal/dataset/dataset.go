// Package dataset loads the local subscriber and company records that back
// the mock network and the company directory.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/klesify/klesify-backend/pkg/core"
	"gopkg.in/yaml.v3"
)

// Location is the last known network position of a subscriber.
type Location struct {
	Available        bool    `json:"available" yaml:"available"`
	Latitude         float64 `json:"latitude" yaml:"latitude"`
	Longitude        float64 `json:"longitude" yaml:"longitude"`
	Radius           int     `json:"radius" yaml:"radius"`
	LastLocationTime string  `json:"lastLocationTime" yaml:"lastLocationTime"`
}

// SimSwap holds SIM change history.
type SimSwap struct {
	LatestSimChange string `json:"latestSimChange" yaml:"latestSimChange"`
}

// Records groups everything the operator knows about a subscriber.
type Records struct {
	KYC      map[string]any `json:"kyc" yaml:"kyc"`
	Location Location       `json:"location" yaml:"location"`
	SimSwap  SimSwap        `json:"simSwap" yaml:"simSwap"`
}

// Subscriber is one phone number and its records.
type Subscriber struct {
	PhoneNumber string  `json:"phoneNumber" yaml:"phoneNumber"`
	Data        Records `json:"data" yaml:"data"`
}

// KYCValue returns a stored KYC field as text, or false when absent.
func (s Subscriber) KYCValue(field string) (string, bool) {
	v, ok := s.Data.KYC[field]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

// document is the shape of any file in the dataset directory.
type document struct {
	Subscriber `yaml:",inline"`
	Companies  []core.Company `json:"companies" yaml:"companies"`
}

type snapshot struct {
	subscribers map[string]Subscriber
	phones      []string
	companies   []core.Company
}

// Dataset is a reloadable in-memory view of the dataset directory.
// Reads never block; Reload swaps in a fresh snapshot.
type Dataset struct {
	dir    string
	logger *slog.Logger
	snap   atomic.Pointer[snapshot]
}

// Open loads the dataset rooted at dir. A missing directory yields an
// empty dataset.
func Open(dir string, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Dataset{dir: dir, logger: logger}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Dir returns the dataset root.
func (d *Dataset) Dir() string {
	return d.dir
}

// Reload rereads every file under the dataset root.
func (d *Dataset) Reload() error {
	snap := &snapshot{subscribers: make(map[string]Subscriber)}

	err := filepath.WalkDir(d.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !isDataFile(path) {
			return nil
		}
		doc, err := readDocument(path)
		if err != nil {
			d.logger.Warn("skipping unreadable dataset file", "file", path, "error", err)
			return nil
		}
		if doc.PhoneNumber != "" {
			snap.subscribers[doc.PhoneNumber] = doc.Subscriber
		}
		snap.companies = append(snap.companies, doc.Companies...)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		d.logger.Warn("dataset directory does not exist", "dir", d.dir)
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to load dataset %s: %w", d.dir, err)
	}

	for phone := range snap.subscribers {
		snap.phones = append(snap.phones, phone)
	}
	sort.Strings(snap.phones)

	d.snap.Store(snap)
	d.logger.Debug("dataset loaded", "dir", d.dir, "subscribers", len(snap.phones), "companies", len(snap.companies))
	return nil
}

func isDataFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func readDocument(path string) (*document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc document
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(content, &doc)
	} else {
		err = yaml.Unmarshal(content, &doc)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Subscriber returns the records for a phone number.
func (d *Dataset) Subscriber(phone string) (Subscriber, bool) {
	s, ok := d.snap.Load().subscribers[phone]
	return s, ok
}

// PhoneNumbers lists every subscriber number, sorted.
func (d *Dataset) PhoneNumbers() []string {
	return append([]string(nil), d.snap.Load().phones...)
}

// Companies lists the company directory.
func (d *Dataset) Companies() []core.Company {
	return append([]core.Company(nil), d.snap.Load().companies...)
}

// CompanyByName finds a company by exact (case-insensitive) name first,
// then by containment in either direction.
func (d *Dataset) CompanyByName(name string) (*core.Company, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil, false
	}
	companies := d.snap.Load().companies
	for i := range companies {
		if strings.ToLower(companies[i].Name) == want {
			c := companies[i]
			return &c, true
		}
	}
	for i := range companies {
		have := strings.ToLower(companies[i].Name)
		if have != "" && (strings.Contains(have, want) || strings.Contains(want, have)) {
			c := companies[i]
			return &c, true
		}
	}
	return nil, false
}

// EmployeeByPhone finds the employee registered with a phone number.
func (d *Dataset) EmployeeByPhone(phone string) (*core.Employee, *core.Company, bool) {
	if phone == "" {
		return nil, nil, false
	}
	companies := d.snap.Load().companies
	for i := range companies {
		for j := range companies[i].Employees {
			if companies[i].Employees[j].Phone == phone {
				e, c := companies[i].Employees[j], companies[i]
				return &e, &c, true
			}
		}
	}
	return nil, nil, false
}
