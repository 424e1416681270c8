// Command tessera-schema loads entity files, prints the derived tables and
// their CQL DDL, and optionally creates them in Cassandra or DynamoDB.
//
//	tessera-schema [-env FILE] [-apply cql|dynamo] [-recreate] [-wait] [ENTITY.json ...]
//
// Entity files come from the arguments and from TESSERA_ENTITIES.
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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/jacentio/tessera/cql"
	"github.com/jacentio/tessera/dynamo"
	"github.com/jacentio/tessera/internal/config"
	"github.com/jacentio/tessera/schema"
)

var (
	colorOK   = color.New(color.FgGreen, color.Bold).SprintFunc()
	colorErr  = color.New(color.FgRed, color.Bold).SprintFunc()
	colorInfo = color.New(color.FgBlue).SprintFunc()
)

type options struct {
	envFile  string
	apply    string
	recreate bool
	wait     bool
	files    []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, colorErr("error:"), err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("tessera-schema", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.envFile, "env", "", "env file to load (default .env if present)")
	fs.StringVar(&opts.apply, "apply", "", "create the tables: cql or dynamo")
	fs.BoolVar(&opts.recreate, "recreate", false, "drop the keyspace first (cql only)")
	fs.BoolVar(&opts.wait, "wait", false, "wait until created tables are active (dynamo only)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.files = fs.Args()

	switch opts.apply {
	case "", "cql", "dynamo":
	default:
		return opts, fmt.Errorf("unknown -apply target %q (want cql or dynamo)", opts.apply)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	var cfg config.Config
	if opts.envFile != "" {
		cfg = config.LoadConfig(opts.envFile)
	} else {
		cfg = config.LoadConfig()
	}
	logger := cfg.NewLogger(stderr, false).With("run", uuid.NewString())

	reg, err := cfg.Registry(opts.files...)
	if err != nil {
		return err
	}
	logger.Info("entities loaded", "entities", len(reg.Entities()), "tables", len(reg.Tables()))

	printTables(stdout, reg)
	printDDL(stdout, reg)

	switch opts.apply {
	case "cql":
		err = applyCQL(ctx, cfg, opts, reg, logger)
	case "dynamo":
		err = applyDynamo(ctx, cfg, opts, reg, logger)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, colorOK("√ Tables applied to "+opts.apply+"."))
	return nil
}

func printTables(w io.Writer, reg *schema.Registry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Table", "Entity", "Kind", "Partition Key", "Clustering"})
	table.SetAutoWrapText(false)
	for _, e := range reg.Entities() {
		for _, t := range schema.Tables(e) {
			clustering := make([]string, len(t.Clustering))
			for i, c := range t.Clustering {
				clustering[i] = c.Name + " " + c.Order.String()
			}
			table.Append([]string{
				t.Name,
				e.Name(),
				t.Kind.String(),
				strings.Join(t.PartitionKey, ", "),
				strings.Join(clustering, ", "),
			})
		}
	}
	table.Render()
}

func printDDL(w io.Writer, reg *schema.Registry) {
	for _, e := range reg.Entities() {
		fmt.Fprintln(w, colorInfo("-- "+e.Name()))
		for _, stmt := range schema.DeriveSchema(e) {
			fmt.Fprintln(w, stmt+";")
		}
	}
}

func applyCQL(ctx context.Context, cfg config.Config, opts options, reg *schema.Registry, logger *slog.Logger) error {
	cluster := cql.NewCluster(cql.Config{
		Hosts:    cfg.CQLHosts,
		Username: cfg.CQLUsername,
		Password: cfg.CQLPassword,
		Timeout:  cfg.Timeout,
	})
	ks := cql.Keyspace{
		Name:        cfg.Keyspace,
		Replication: cql.SimpleReplication(cfg.ReplicationFactor),
		Recreate:    opts.recreate,
	}
	return cql.Provision(ctx, cluster, ks, reg.DeriveSchema(), logger)
}

func applyDynamo(ctx context.Context, cfg config.Config, opts options, reg *schema.Registry, logger *slog.Logger) error {
	if opts.recreate {
		return errors.New("-recreate is not supported for dynamo")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	sess := dynamo.New(dynamodb.NewFromConfig(awsCfg), dynamo.Config{
		TablePrefix: cfg.TablePrefix,
		Logger:      logger,
	}, reg.Entities()...)
	return sess.Provision(ctx, dynamo.ProvisionOptions{Wait: opts.wait})
}
