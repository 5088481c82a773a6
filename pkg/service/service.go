package service

import (
	"fmt"
	"io"
	"path/filepath"

	coreconfig "github.com/mattsolo1/grove-core/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-itemtree/pkg/itemerr"
	"github.com/mattsolo1/grove-itemtree/pkg/sqlstore"
	"github.com/mattsolo1/grove-itemtree/pkg/traverse"
	"github.com/mattsolo1/grove-itemtree/pkg/tree"
	"github.com/mattsolo1/grove-itemtree/pkg/treefile"
)

// StoreFile is the database file name inside the data directory.
const StoreFile = "items.db"

// Service answers tree queries against either a YAML tree file or the
// sqlite store in the data directory.
type Service struct {
	Config *Config

	log     logrus.FieldLogger
	session *tree.Session
	store   *sqlstore.Store
}

// Config holds service configuration
type Config struct {
	DataDir      string
	File         string
	BreadthFirst bool
	MaxDepth     int
	// MaxDepthSet marks MaxDepth as given by flag, env or config file, so
	// grove.yml does not override it.
	MaxDepthSet bool
}

// merge fills values config leaves open from the itree section of
// grove.yml.
func (c *Config) merge(ext ExtensionConfig) {
	if c.DataDir == "" {
		c.DataDir = ext.DataDir
	}
	if ext.MaxDepth != nil && !c.MaxDepthSet {
		c.MaxDepth = *ext.MaxDepth
		c.MaxDepthSet = true
	}
}

// ExtensionConfig is the itree section of grove.yml.
type ExtensionConfig struct {
	DataDir  string `yaml:"data_dir"`
	MaxDepth *int   `yaml:"max_depth"`
}

// New creates a service. Values missing from config are taken from the
// itree section of the grove configuration when present.
func New(config *Config, log logrus.FieldLogger) (*Service, error) {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	coreCfg, err := coreconfig.LoadDefault()
	if err != nil {
		// No grove.yml is fine, flags and viper defaults still apply.
		coreCfg = &coreconfig.Config{}
	}
	var ext ExtensionConfig
	if err := coreCfg.UnmarshalExtension("itree", &ext); err == nil {
		config.merge(ext)
	}

	if config.File == "" && config.DataDir == "" {
		return nil, fmt.Errorf("no tree file given and no data directory configured")
	}

	return &Service{Config: config, log: log}, nil
}

// Close releases the sqlite store if it was opened.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// Options returns the traversal options from the configuration.
func (s *Service) Options() traverse.Options {
	o := traverse.DefaultOptions()
	o.BreadthFirst = s.Config.BreadthFirst
	o.MaxDepth = s.Config.MaxDepth
	if o.MaxDepth < 0 {
		o.MaxDepth = traverse.Unbounded
	}
	return o
}

func (s *Service) openStore() (*sqlstore.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	st, err := sqlstore.Open(filepath.Join(s.Config.DataDir, StoreFile), sqlstore.WithLogger(s.log))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.store = st
	return st, nil
}

func (s *Service) openFile() (*tree.Session, error) {
	if s.session != nil {
		return s.session, nil
	}
	repo := tree.NewRepository(tree.WithName(s.Config.File), tree.WithLogger(s.log))
	session := repo.Login()
	if err := treefile.LoadFile(s.Config.File, session); err != nil {
		return nil, err
	}
	s.log.WithField("file", s.Config.File).Debug("tree file loaded")
	s.session = session
	return session, nil
}

// Item returns the item at absPath in the configured source.
func (s *Service) Item(absPath string) (tree.Item, error) {
	if s.Config.File != "" {
		session, err := s.openFile()
		if err != nil {
			return nil, err
		}
		return session.Item(absPath)
	}
	st, err := s.openStore()
	if err != nil {
		return nil, err
	}
	return st.Lookup(absPath)
}

// Walk prints the subtree rooted at absPath to w using the configured
// traversal options.
func (s *Service) Walk(absPath string, opts traverse.Options, w io.Writer) error {
	item, err := s.Item(absPath)
	if err != nil {
		return err
	}
	walker := traverse.NewWithOptions(opts, traverse.WithLogger(s.log))
	return walker.Traverse(item, &traverse.Printer{W: w, Values: true})
}

// Events records the entering and leaving events of a traversal from
// absPath.
func (s *Service) Events(absPath string, opts traverse.Options) ([]traverse.Event, error) {
	item, err := s.Item(absPath)
	if err != nil {
		return nil, err
	}
	rec := &traverse.Recorder{}
	walker := traverse.NewWithOptions(opts, traverse.WithLogger(s.log))
	if err := walker.Traverse(item, rec); err != nil {
		return nil, err
	}
	return rec.Events, nil
}

// List returns the properties and then the child nodes of the node at
// absPath.
func (s *Service) List(absPath string) ([]tree.Item, error) {
	item, err := s.Item(absPath)
	if err != nil {
		return nil, err
	}
	n, ok := item.(tree.Node)
	if !ok || !item.IsNode() {
		return nil, errors.Errorf("%s is a property", item.Path())
	}

	var out []tree.Item
	for p, err := range n.Properties() {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	for c, err := range n.Nodes() {
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Ancestor returns the ancestor of the item at absPath at the given
// absolute degree.
func (s *Service) Ancestor(absPath string, degree int) (tree.Item, error) {
	item, err := s.Item(absPath)
	if err != nil {
		return nil, err
	}
	return item.Ancestor(degree)
}

// Dump writes the subtree at absPath to w as a YAML tree file.
func (s *Service) Dump(absPath string, w io.Writer) error {
	item, err := s.Item(absPath)
	if err != nil {
		return err
	}
	n, ok := item.(tree.Node)
	if !ok || !item.IsNode() {
		return errors.Errorf("%s is a property", item.Path())
	}
	return treefile.Dump(w, n)
}

// Import loads a YAML tree file and replaces the content of the sqlite
// store with it.
func (s *Service) Import(file string) error {
	if s.Config.DataDir == "" {
		return fmt.Errorf("import needs a data directory")
	}
	session := tree.NewRepository(tree.WithName(file), tree.WithLogger(s.log)).Login()
	if err := treefile.LoadFile(file, session); err != nil {
		return err
	}
	root, err := session.Root()
	if err != nil {
		return err
	}
	st, err := s.openStore()
	if err != nil {
		return err
	}
	if err := st.Import(root); err != nil {
		return fmt.Errorf("import %s: %w", file, err)
	}
	return nil
}

// IsNotFound reports whether err means the requested item does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, itemerr.ErrPathNotFound) || errors.Is(err, itemerr.ErrItemNotFound)
}
