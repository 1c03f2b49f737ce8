// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

package main

import (
	"context"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"lookupd.io/lookupd/pkg/backup"
	"lookupd.io/lookupd/pkg/docstore"
	"lookupd.io/lookupd/pkg/editor"
	"lookupd.io/lookupd/pkg/export"
	"lookupd.io/lookupd/pkg/lookup"
	"lookupd.io/lookupd/pkg/metainfo"
	"lookupd.io/lookupd/pkg/process"
	"lookupd.io/lookupd/storage"
	"lookupd.io/lookupd/storage/boltdb"
	"lookupd.io/lookupd/storage/filestore"
	"lookupd.io/lookupd/storage/redis"
	"lookupd.io/lookupd/storage/storelogger"
)

// Error is the error class for the lookupd command.
var Error = errs.Class("lookupd error")

var (
	rootCmd = &cobra.Command{
		Use:   "lookupd",
		Short: "Lookup dataset management",
	}
	resolveCmd = &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve the physical path of a lookup",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdResolve,
	}
	catCmd = &cobra.Command{
		Use:   "cat <name>",
		Short: "Print the contents of a lookup file",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdCat,
	}
	saveCmd = &cobra.Command{
		Use:   "save <name> <file>",
		Short: "Replace the contents of a lookup file, backing up the previous contents",
		Args:  cobra.ExactArgs(2),
		RunE:  cmdSave,
	}
	restoreCmd = &cobra.Command{
		Use:   "restore <name> <version>",
		Short: "Restore a lookup file from one of its backups",
		Args:  cobra.ExactArgs(2),
		RunE:  cmdRestore,
	}
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Lookup backup management",
	}
	backupListCmd = &cobra.Command{
		Use:   "list <name>",
		Short: "List the backup versions of a lookup",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdBackupList,
	}
	backupCreateCmd = &cobra.Command{
		Use:   "create <name>",
		Short: "Back up the current contents of a lookup",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdBackupCreate,
	}
	exportCmd = &cobra.Command{
		Use:   "export <collection>",
		Short: "Export a document collection as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdExport,
	}
	importCmd = &cobra.Command{
		Use:   "import <collection> <file>",
		Short: "Import CSV rows into a document collection",
		Args:  cobra.ExactArgs(2),
		RunE:  cmdImport,
	}

	cfg struct {
		Root      string
		MetaAddr  string
		Session   string
		DB        string
		Namespace string
		Owner     string
		Version   string
		Timeout   time.Duration
	}
)

func init() {
	rootCmd.AddCommand(resolveCmd, catCmd, saveCmd, restoreCmd, backupCmd, exportCmd, importCmd)
	backupCmd.AddCommand(backupListCmd, backupCreateCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Root, "root", ".", "platform storage root directory")
	flags.StringVar(&cfg.MetaAddr, "metainfo.addr", "http://localhost:8089", "metadata service address")
	flags.StringVar(&cfg.Session, "session", "", "session key for the metadata service")
	flags.StringVar(&cfg.DB, "db", "lookupd.db", "document store backend: a bolt file path or redis://host:port?db=n")
	flags.StringVar(&cfg.Namespace, "namespace", "", "application context of the lookup")
	flags.StringVar(&cfg.Owner, "owner", "", "user context of the lookup, empty for global")
	flags.StringVar(&cfg.Version, "version", "", "backup version to address instead of the live lookup")
	flags.DurationVar(&cfg.Timeout, "metainfo.timeout", 30*time.Second, "timeout for metadata service calls")
}

type environment struct {
	log      *zap.Logger
	resolver *lookup.Resolver
	files    *filestore.Store
	backups  *backup.Store
	editor   *editor.Editor
}

func newEnvironment() (*environment, error) {
	log, err := process.NewLogger()
	if err != nil {
		return nil, err
	}

	meta := metainfo.NewClient(log.Named("metainfo"), cfg.MetaAddr, cfg.Timeout)
	resolver := lookup.NewResolver(log.Named("resolver"), meta, cfg.Root)
	files := filestore.New(log.Named("filestore"))
	backups := backup.New(log.Named("backup"), resolver, files)

	return &environment{
		log:      log,
		resolver: resolver,
		files:    files,
		backups:  backups,
		editor:   editor.New(log.Named("editor"), resolver, backups, files),
	}, nil
}

func openDocs(log *zap.Logger) (*docstore.Store, error) {
	var db storage.KeyValueStore
	var err error
	if strings.HasPrefix(cfg.DB, "redis://") {
		db, err = redis.NewClientFrom(cfg.DB)
	} else {
		db, err = boltdb.New(log.Named("boltdb"), cfg.DB)
	}
	if err != nil {
		return nil, err
	}
	return docstore.New(log.Named("docstore"), storelogger.New(log, db)), nil
}

func reference(name string) lookup.Reference {
	return lookup.Reference{
		Name:      name,
		Namespace: cfg.Namespace,
		Owner:     cfg.Owner,
		Version:   cfg.Version,
	}
}

func cmdResolve(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}

	location, err := env.resolver.Resolve(context.Background(), reference(args[0]), false, cfg.Session)
	if err != nil {
		return err
	}

	cmd.Println(location.PhysicalPath)
	return nil
}

func cmdCat(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}

	content, err := env.editor.Contents(context.Background(), reference(args[0]), cfg.Session)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(content)
	return err
}

func cmdSave(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}

	content, err := ioutil.ReadFile(args[1])
	if err != nil {
		return Error.Wrap(err)
	}
	return env.editor.Save(context.Background(), reference(args[0]), content, cfg.Session)
}

func cmdRestore(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	return env.editor.Restore(context.Background(), reference(args[0]), args[1], cfg.Session)
}

func cmdBackupList(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}

	versions, err := env.backups.ListVersions(context.Background(), reference(args[0]), cfg.Session)
	if err != nil {
		return err
	}
	for _, version := range versions {
		cmd.Println(version)
	}
	return nil
}

func cmdBackupCreate(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	ctx := context.Background()

	ref := reference(args[0])
	content, err := env.editor.Contents(ctx, ref, cfg.Session)
	if err != nil {
		return err
	}

	version, err := env.backups.CreateBackup(ctx, ref, nil, content, cfg.Session)
	if err != nil {
		return err
	}
	cmd.Println(version)
	return nil
}

func cmdExport(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}

	docs, err := openDocs(env.log)
	if err != nil {
		return err
	}

	exporter := export.New(env.log.Named("export"), docs)
	return exporter.WriteCSV(context.Background(), args[0], cmd.OutOrStdout())
}

func cmdImport(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}

	docs, err := openDocs(env.log)
	if err != nil {
		return err
	}

	file, err := os.Open(args[1])
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { _ = file.Close() }()

	exporter := export.New(env.log.Named("export"), docs)
	count, err := exporter.ReadCSV(context.Background(), args[0], file)
	if err != nil {
		return err
	}

	env.log.Info("import finished", zap.String("collection", args[0]), zap.Int("documents", count))
	return nil
}

func main() {
	process.Execute(rootCmd)
}
