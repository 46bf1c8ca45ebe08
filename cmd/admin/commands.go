package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gorm.io/gorm"

	"pagecraft/internal/database"
	"pagecraft/internal/document"
	"pagecraft/internal/editor"
	"pagecraft/internal/snapshot"
	"pagecraft/internal/storage"
)

const usage = `usage: admin <command> [flags]

commands:
  list                                列出已保存的页面
  export   -page <key> [-out file]    导出页面快照
  import   -page <key> -in <file>     导入快照并覆盖页面
  reset    -page <key> [-template t]  用内置模板重置页面
  archives -page <key> [-limit n]     列出页面的归档记录
  purge    -page <key>                删除页面的素材与归档
`

type objectRemover interface {
	DeleteObject(ctx context.Context, objectKey string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// app 持有命令所需的依赖，db 与 objects 可为空。
type app struct {
	store   snapshot.Store
	manager *editor.Manager
	db      *gorm.DB
	objects objectRemover
	out     io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return a.list(ctx)
	case "export":
		return a.export(ctx, rest)
	case "import":
		return a.importPage(ctx, rest)
	case "reset":
		return a.reset(ctx, rest)
	case "archives":
		return a.archives(ctx, rest)
	case "purge":
		return a.purge(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func parsePage(fs *flag.FlagSet, args []string, page *string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	*page = strings.TrimSpace(*page)
	if !editor.ValidPage(*page) {
		return fmt.Errorf("%w: %q", editor.ErrInvalidPage, *page)
	}
	return nil
}

func (a *app) list(ctx context.Context) error {
	var keys []string
	switch s := a.store.(type) {
	case interface {
		Keys(context.Context) ([]string, error)
	}:
		var err error
		if keys, err = s.Keys(ctx); err != nil {
			return err
		}
	case interface{ Keys() []string }:
		keys = s.Keys()
	default:
		return errors.New("list is not supported by this persistence backend")
	}

	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasSuffix(k, snapshot.MalformedSuffix) {
			fmt.Fprintf(a.out, "%s\t(backup)\n", k)
			continue
		}
		fmt.Fprintln(a.out, k)
	}
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	page := fs.String("page", "", "页面 key（必填）")
	out := fs.String("out", "", "输出文件（默认 stdout）")
	if err := parsePage(fs, args, page); err != nil {
		return err
	}

	blob, err := a.store.Get(ctx, *page)
	if errors.Is(err, snapshot.ErrNotFound) {
		return fmt.Errorf("page %q has no stored snapshot", *page)
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	if *out == "" {
		_, err = fmt.Fprintf(a.out, "%s\n", blob)
		return err
	}
	if err := os.WriteFile(*out, blob, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(a.out, "exported %s (%d bytes) to %s\n", *page, len(blob), *out)
	return nil
}

func (a *app) importPage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	page := fs.String("page", "", "页面 key（必填）")
	in := fs.String("in", "", "快照文件（必填）")
	if err := parsePage(fs, args, page); err != nil {
		return err
	}
	if strings.TrimSpace(*in) == "" {
		return errors.New("missing required flag: -in")
	}

	blob, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("read %s: %w", *in, err)
	}
	report, err := a.manager.Import(ctx, *page, blob)
	if err != nil {
		return fmt.Errorf("import %s: %w", *page, err)
	}

	fmt.Fprintf(a.out, "imported %s (version %d)\n", *page, report.Version)
	for _, issue := range report.Issues {
		fmt.Fprintf(a.out, "  %s\t%s\t%s\n", issue.Kind, issue.BlockID, issue.Message)
	}
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	page := fs.String("page", "", "页面 key（必填）")
	template := fs.String("template", document.TemplateLanding, "模板名称")
	if err := parsePage(fs, args, page); err != nil {
		return err
	}

	s, err := a.manager.Session(ctx, *page)
	if err != nil {
		return err
	}
	if err := s.Reset(ctx, *template); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "reset %s from template %s (%d blocks)\n", *page, *template, len(s.View().Blocks))
	return nil
}

func (a *app) archives(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("archives", flag.ContinueOnError)
	page := fs.String("page", "", "页面 key（必填）")
	limit := fs.Int("limit", 20, "最多显示条数")
	if err := parsePage(fs, args, page); err != nil {
		return err
	}
	if a.db == nil {
		return errors.New("archives need a database connection")
	}

	archives, err := database.ListArchives(ctx, a.db, *page, *limit)
	if err != nil {
		return err
	}
	for _, archive := range archives {
		fmt.Fprintf(a.out, "%s\t%s\t%d\t%s\n",
			archive.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			archive.ObjectKey,
			archive.SizeBytes,
			archive.CorrelationID,
		)
	}
	return nil
}

func (a *app) purge(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	page := fs.String("page", "", "页面 key（必填）")
	if err := parsePage(fs, args, page); err != nil {
		return err
	}
	if a.db == nil || a.objects == nil {
		return errors.New("purge needs database and storage connections")
	}

	keys, err := database.NewAssetStore(a.db).DeleteByPage(ctx, *page)
	if err != nil {
		return err
	}
	var errs []error
	for _, key := range keys {
		if err := a.objects.DeleteObject(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.objects.DeletePrefix(ctx, storage.ArchivePrefix(*page)); err != nil {
		errs = append(errs, err)
	}
	archived, err := database.DeleteArchives(ctx, a.db, *page)
	if err != nil {
		errs = append(errs, err)
	}

	fmt.Fprintf(a.out, "purged %s: %d assets, %d archives\n", *page, len(keys), archived)
	return errors.Join(errs...)
}
