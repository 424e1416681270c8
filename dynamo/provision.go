package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/tessera/schema"
)

// ProvisionOptions configures table creation.
type ProvisionOptions struct {
	// Wait blocks until every created table is ACTIVE.
	Wait bool

	// MaxWait bounds the wait per table.
	// Default: 2 minutes
	MaxWait time.Duration
}

// Provision creates the DynamoDB table of every derived table the session
// serves. Tables that already exist are left untouched. Primary tables get a
// NEW_AND_OLD_IMAGES stream for the projection reconciler.
func (s *Session) Provision(ctx context.Context, opts ProvisionOptions) error {
	if opts.MaxWait <= 0 {
		opts.MaxWait = 2 * time.Minute
	}

	var created []string
	for _, t := range s.sortedTables() {
		name := s.TableName(t.Name)
		_, err := s.client.CreateTable(ctx, createTableInput(name, t))
		var inUse *types.ResourceInUseException
		switch {
		case errors.As(err, &inUse):
			s.config.Logger.InfoContext(ctx, "table exists", "table", name)
			continue
		case err != nil:
			return fmt.Errorf("create table %s: %w", name, err)
		}
		s.config.Logger.InfoContext(ctx, "table created", "table", name, "kind", t.Kind.String())
		created = append(created, name)
	}

	if !opts.Wait {
		return nil
	}
	waiter := dynamodb.NewTableExistsWaiter(s.client)
	for _, name := range created {
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, opts.MaxWait); err != nil {
			return fmt.Errorf("wait for table %s: %w", name, err)
		}
	}
	return nil
}

func createTableInput(name string, t schema.Table) *dynamodb.CreateTableInput {
	input := &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(AttrPK), AttributeType: types.ScalarAttributeTypeN},
			{AttributeName: aws.String(AttrSK), AttributeType: types.ScalarAttributeTypeB},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(AttrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(AttrSK), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
	if t.Kind == schema.KindPrimary {
		input.StreamSpecification = &types.StreamSpecification{
			StreamEnabled:  aws.Bool(true),
			StreamViewType: types.StreamViewTypeNewAndOldImages,
		}
	}
	return input
}
