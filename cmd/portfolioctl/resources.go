package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tyemirov/portfolio/pkg/portfolioclient"
)

// resourceCommands is the untyped view of a portfolioclient.Resource used by the CLI.
type resourceCommands interface {
	list(ctx context.Context, userID uint) (any, error)
	get(ctx context.Context, id uint) (any, error)
	create(ctx context.Context, data []byte) (any, error)
	update(ctx context.Context, id uint, data []byte) (any, error)
	remove(ctx context.Context, id uint) error
	upload(ctx context.Context, id uint, fields url.Values, file portfolioclient.File) (any, error)
}

type resourceAdapter[T any] struct {
	resource *portfolioclient.Resource[T]
}

func (adapter resourceAdapter[T]) list(ctx context.Context, userID uint) (any, error) {
	if userID != 0 {
		return adapter.resource.ListByUser(ctx, userID)
	}
	return adapter.resource.List(ctx)
}

func (adapter resourceAdapter[T]) get(ctx context.Context, id uint) (any, error) {
	return adapter.resource.Get(ctx, id)
}

func (adapter resourceAdapter[T]) create(ctx context.Context, data []byte) (any, error) {
	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("cli.invalid_data: %w", err)
	}
	return adapter.resource.Create(ctx, record)
}

func (adapter resourceAdapter[T]) update(ctx context.Context, id uint, data []byte) (any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("cli.invalid_data: %w", err)
	}
	return adapter.resource.Patch(ctx, id, fields)
}

func (adapter resourceAdapter[T]) remove(ctx context.Context, id uint) error {
	return adapter.resource.Delete(ctx, id)
}

func (adapter resourceAdapter[T]) upload(ctx context.Context, id uint, fields url.Values, file portfolioclient.File) (any, error) {
	return adapter.resource.Upload(ctx, id, fields, file)
}

// uploadFields names the multipart file field of resources that accept one.
var uploadFields = map[string]string{
	"projects": "image_file",
	"services": "icon_file",
}

func resourcesOf(client *portfolioclient.Client) map[string]resourceCommands {
	return map[string]resourceCommands{
		"experiences":  resourceAdapter[portfolioclient.Experience]{client.Experiences},
		"educations":   resourceAdapter[portfolioclient.Education]{client.Educations},
		"skills":       resourceAdapter[portfolioclient.Skill]{client.Skills},
		"socials":      resourceAdapter[portfolioclient.Social]{client.Socials},
		"projects":     resourceAdapter[portfolioclient.Project]{client.Projects},
		"services":     resourceAdapter[portfolioclient.Service]{client.Services},
		"articles":     resourceAdapter[portfolioclient.Article]{client.Articles},
		"contacts":     resourceAdapter[portfolioclient.Contact]{client.Contacts},
		"social-types": resourceAdapter[portfolioclient.SocialType]{client.SocialTypes},
		"categories":   resourceAdapter[portfolioclient.Category]{client.Categories},
	}
}

func resourceNames() string {
	names := make([]string, 0, 10)
	for name := range resourcesOf(&portfolioclient.Client{}) {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func lookupResource(client *portfolioclient.Client, name string) (resourceCommands, error) {
	resource, ok := resourcesOf(client)[name]
	if !ok {
		return nil, fmt.Errorf("cli.unknown_resource: %q; expected one of %s", name, resourceNames())
	}
	return resource, nil
}

func newListCommand() *cobra.Command {
	var userID uint
	command := &cobra.Command{
		Use:   "list <resource>",
		Short: "List your records, or a user's public records with --user",
		Args:  cobra.ExactArgs(1),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			resource, err := lookupResource(client, arguments[0])
			if err != nil {
				return nil, err
			}
			return resource.list(ctx, userID)
		}),
	}
	command.Flags().UintVar(&userID, "user", 0, "List the public records of this user id")
	return command
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			resource, id, err := resourceAndID(client, arguments)
			if err != nil {
				return nil, err
			}
			return resource.get(ctx, id)
		}),
	}
}

func newCreateCommand() *cobra.Command {
	var data string
	command := &cobra.Command{
		Use:   "create <resource>",
		Short: "Create a record from JSON",
		Args:  cobra.ExactArgs(1),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			resource, err := lookupResource(client, arguments[0])
			if err != nil {
				return nil, err
			}
			return resource.create(ctx, []byte(data))
		}),
	}
	command.Flags().StringVar(&data, "data", "", "Record as JSON")
	_ = command.MarkFlagRequired("data")
	return command
}

func newUpdateCommand() *cobra.Command {
	var data string
	command := &cobra.Command{
		Use:   "update <resource> <id>",
		Short: "Change some fields of a record",
		Args:  cobra.ExactArgs(2),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			resource, id, err := resourceAndID(client, arguments)
			if err != nil {
				return nil, err
			}
			return resource.update(ctx, id, []byte(data))
		}),
	}
	command.Flags().StringVar(&data, "data", "", "Changed fields as JSON")
	_ = command.MarkFlagRequired("data")
	return command
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			resource, id, err := resourceAndID(client, arguments)
			if err != nil {
				return nil, err
			}
			return nil, resource.remove(ctx, id)
		}),
	}
}

func newUploadCommand() *cobra.Command {
	var (
		id     uint
		path   string
		values []string
	)
	command := &cobra.Command{
		Use:   "upload <resource>",
		Short: "Create or update a record together with its image",
		Args:  cobra.ExactArgs(1),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			field, ok := uploadFields[arguments[0]]
			if !ok {
				return nil, fmt.Errorf("cli.no_upload: %q does not accept files", arguments[0])
			}
			resource, err := lookupResource(client, arguments[0])
			if err != nil {
				return nil, err
			}
			fields := url.Values{}
			for _, value := range values {
				key, content, found := strings.Cut(value, "=")
				if !found || key == "" {
					return nil, fmt.Errorf("cli.invalid_field: %q must be key=value", value)
				}
				fields.Add(key, content)
			}
			file, err := readUpload(path)
			if err != nil {
				return nil, err
			}
			file.Field = field
			return resource.upload(ctx, id, fields, file)
		}),
	}
	command.Flags().UintVar(&id, "id", 0, "Update this record instead of creating one")
	command.Flags().StringVar(&path, "file", "", "Path of the image")
	command.Flags().StringArrayVar(&values, "set", nil, "Form field as key=value; repeat for lists")
	_ = command.MarkFlagRequired("file")
	return command
}

func resourceAndID(client *portfolioclient.Client, arguments []string) (resourceCommands, uint, error) {
	resource, err := lookupResource(client, arguments[0])
	if err != nil {
		return nil, 0, err
	}
	id, err := parseID(arguments[1])
	if err != nil {
		return nil, 0, err
	}
	return resource, id, nil
}
