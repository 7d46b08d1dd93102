// kakaosearch looks places or addresses up through the Kakao Local API and
// prints them as a table.
//
//	kakaosearch [-address] [-page N] [-size N] [-sort S] [-analyze T] [-coords] <query>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manzanit0/studymap/pkg/config"
	"github.com/manzanit0/studymap/pkg/kakao"
	"github.com/manzanit0/studymap/pkg/logger"
	"github.com/manzanit0/studymap/pkg/whttp"
)

const ServiceName = "kakaosearch"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	handler := logger.NewContextJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(handler).With("service", ServiceName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	search := kakao.NewClient(whttp.NewClient(cfg.Kakao.Timeout, cfg.Log.Debug), cfg.Kakao.APIKey, kakao.WithBaseURL(cfg.Kakao.BaseURL))

	if err := run(ctx, os.Args[1:], os.Stdout, search); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(2)
	}
}

func run(ctx context.Context, args []string, out io.Writer, search kakao.Client) error {
	fs := flag.NewFlagSet(ServiceName, flag.ContinueOnError)
	fs.SetOutput(out)

	address := fs.Bool("address", false, "search addresses instead of places")
	page := fs.Int("page", kakao.DefaultPage, "result page, 1 to 45")
	size := fs.Int("size", kakao.DefaultSize, "results per page")
	sort := fs.String("sort", string(kakao.SortAccuracy), "place ordering: accuracy or distance")
	analyze := fs.String("analyze", string(kakao.AnalyzeSimilar), "address matching: similar or exact")
	coords := fs.Bool("coords", false, "show coordinates")

	if err := fs.Parse(args); err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fs.Usage()
		return fmt.Errorf("missing query")
	}

	var opts []TableOption
	if *coords {
		opts = append(opts, WithCoordinates())
	}

	if *address {
		res, err := search.SearchByAddress(ctx, kakao.AddressRequest{
			Query:       query,
			Page:        *page,
			Size:        *size,
			AnalyzeType: kakao.AnalyzeType(*analyze),
		})
		if err != nil {
			return fmt.Errorf("search address: %w", err)
		}

		_, err = fmt.Fprint(out, NewAddressesTable(res, opts...))
		return err
	}

	res, err := search.SearchByKeyword(ctx, kakao.KeywordRequest{
		Query: query,
		Page:  *page,
		Size:  *size,
		Sort:  kakao.Sort(*sort),
	})
	if err != nil {
		return fmt.Errorf("search keyword: %w", err)
	}

	_, err = fmt.Fprint(out, NewPlacesTable(res, opts...))
	return err
}
