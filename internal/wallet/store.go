package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrWalletNotFound = errors.New("wallet not found")

// Entry is one wallet in the wallets file. Exactly one key source must be set.
type Entry struct {
	Name           string `yaml:"name"`
	PrivateKey     string `yaml:"private_key"`
	KeypairFile    string `yaml:"keypair_file"`
	Mnemonic       string `yaml:"mnemonic"`
	Passphrase     string `yaml:"passphrase"`
	DerivationPath string `yaml:"derivation_path"`
}

type walletsFile struct {
	Wallets []Entry `yaml:"wallets"`
}

// Store holds loaded wallets in file order.
type Store struct {
	order  []string
	byName map[string]*Wallet
}

// LoadWallets reads a YAML wallets file. Relative keypair paths resolve against the file's directory.
func LoadWallets(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallets file: %w", err)
	}
	var f walletsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse wallets file: %w", err)
	}
	if len(f.Wallets) == 0 {
		return nil, fmt.Errorf("wallets file %s has no wallets", path)
	}

	store := &Store{byName: make(map[string]*Wallet, len(f.Wallets))}
	dir := filepath.Dir(path)
	for i, e := range f.Wallets {
		w, err := e.load(dir)
		if err != nil {
			return nil, fmt.Errorf("wallet #%d (%s): %w", i+1, e.Name, err)
		}
		if err := store.Add(w); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (e Entry) load(dir string) (*Wallet, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	sources := 0
	for _, s := range []string{e.PrivateKey, e.KeypairFile, e.Mnemonic} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of private_key, keypair_file, mnemonic is required")
	}

	var (
		w   *Wallet
		err error
	)
	switch {
	case e.PrivateKey != "":
		w, err = NewWallet(strings.TrimSpace(e.PrivateKey))
	case e.KeypairFile != "":
		p := os.ExpandEnv(e.KeypairFile)
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		w, err = FromKeygenFile(p)
	default:
		w, err = FromMnemonic(strings.TrimSpace(e.Mnemonic), e.Passphrase, e.DerivationPath)
	}
	if err != nil {
		return nil, err
	}
	w.Name = name
	return w, nil
}

// Add registers w under its name.
func (s *Store) Add(w *Wallet) error {
	if s.byName == nil {
		s.byName = make(map[string]*Wallet)
	}
	if _, dup := s.byName[w.Name]; dup {
		return fmt.Errorf("duplicate wallet name %q", w.Name)
	}
	s.byName[w.Name] = w
	s.order = append(s.order, w.Name)
	return nil
}

// Get returns the wallet called name.
func (s *Store) Get(name string) (*Wallet, error) {
	w, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, name)
	}
	return w, nil
}

// Select resolves names in order; "all" or an empty list selects every wallet.
func (s *Store) Select(names []string) ([]*Wallet, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == "all") {
		return s.All(), nil
	}
	out := make([]*Wallet, 0, len(names))
	for _, n := range names {
		w, err := s.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// All returns every wallet in file order.
func (s *Store) All() []*Wallet {
	out := make([]*Wallet, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byName[n])
	}
	return out
}

func (s *Store) Len() int { return len(s.order) }

// Names returns the wallet names in file order.
func (s *Store) Names() []string {
	return append([]string(nil), s.order...)
}
