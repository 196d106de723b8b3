// Command blockfs runs the interactive shell over a block-backed
// virtual file system. The disk image and the metadata snapshot live
// in separate files; the snapshot is loaded at startup when present
// and written back on exit.
package main

import (
	"fmt"
	"os"

	"github.com/mit-pdos/go-journal/util"
	"github.com/spf13/cobra"

	"github.com/mit-pdos/go-blockfs/common"
	"github.com/mit-pdos/go-blockfs/config"
	"github.com/mit-pdos/go-blockfs/logger"
	"github.com/mit-pdos/go-blockfs/shell"
	"github.com/mit-pdos/go-blockfs/store"
	"github.com/mit-pdos/go-blockfs/vfs"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "blockfs",
	Short: "A block-backed virtual file system with an interactive shell",
	Long: `blockfs simulates a file system over a single flat disk image of
fixed-size blocks. Files and directories live in a path-keyed
namespace whose metadata is persisted to a snapshot file separate
from the image, so the whole state survives restarts.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default blockfs.yaml in . or ~/.blockfs)")
	rootCmd.Flags().String("disk", "blockfs.img", "disk image path")
	rootCmd.Flags().String("meta", "blockfs.meta", "metadata snapshot path")
	rootCmd.Flags().Uint64("blocks", common.NBLOCKS, "disk capacity in blocks")
	rootCmd.Flags().Uint64("debug", 0, "debug level (higher is more verbose)")
	rootCmd.Flags().String("log-format", "human", "log format: json or human")

	v := config.Viper()
	v.BindPFlag("disk_path", rootCmd.Flags().Lookup("disk"))
	v.BindPFlag("meta_path", rootCmd.Flags().Lookup("meta"))
	v.BindPFlag("num_blocks", rootCmd.Flags().Lookup("blocks"))
	v.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
	v.BindPFlag("log_format", rootCmd.Flags().Lookup("log-format"))
}

func run() error {
	if err := config.Initialize(cfgFile); err != nil {
		return err
	}
	cfg := config.Instance

	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug > 0,
		LogFormat: cfg.LogFormat,
		LogFile:   cfg.LogFile,
	}); err != nil {
		return err
	}
	defer logger.Sync()
	util.Debug = cfg.Debug

	bs, err := store.Open(cfg.DiskPath, cfg.NumBlocks)
	if err != nil {
		return err
	}
	defer bs.Close()
	fs := vfs.MkFs(bs)

	if f, err := os.Open(cfg.MetaPath); err == nil {
		loadErr := fs.Load(f)
		f.Close()
		if loadErr != nil {
			return fmt.Errorf("load %s: %w", cfg.MetaPath, loadErr)
		}
		logger.Info("snapshot loaded",
			"meta", cfg.MetaPath, "entries", fs.NumEntries())
	} else if !os.IsNotExist(err) {
		return err
	}

	logger.Info("blockfs started",
		"disk", cfg.DiskPath, "blocks", cfg.NumBlocks,
		"free", bs.FreeBlocks())
	shell.New(fs, os.Stdout).Run(os.Stdin)

	f, err := os.Create(cfg.MetaPath)
	if err != nil {
		return fmt.Errorf("save %s: %w", cfg.MetaPath, err)
	}
	saveErr := fs.Save(f)
	if closeErr := f.Close(); saveErr == nil {
		saveErr = closeErr
	}
	if saveErr != nil {
		return fmt.Errorf("save %s: %w", cfg.MetaPath, saveErr)
	}
	logger.Info("snapshot saved", "meta", cfg.MetaPath, "entries", fs.NumEntries())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
