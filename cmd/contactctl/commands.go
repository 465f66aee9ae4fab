package main

import (
	"fmt"
	"os"
	"path/filepath"

	"contact_book/internal/model"

	"github.com/spf13/cobra"
)

func newListCmd(app *cli) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts page by page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.svc.List(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "contacts per page (default: apiConfig.defaultLimit)")
	return cmd
}

func newSearchCmd(app *cli) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search contacts by name, email or phone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.svc.Search(cmd.Context(), page, limit, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "contacts per page (default: apiConfig.defaultLimit)")
	return cmd
}

func newGetCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Show one contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contact, err := app.svc.Get(cmd.Context(), model.ContactID(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), contact)
		},
	}
}

// formFlags 新建与更新共用的表单 flag
type formFlags struct {
	name, email, phone, address string
	favorite                    bool
	avatar                      string
}

func (f *formFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "contact name")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&f.address, "address", "", "postal address")
	cmd.Flags().BoolVar(&f.favorite, "favorite", false, "mark as favorite")
	cmd.Flags().StringVar(&f.avatar, "avatar", "", "path to an avatar image to upload")
	_ = cmd.MarkFlagRequired("name")
}

// form 组装表单，调用方负责调用返回的 close
func (f *formFlags) form() (model.ContactForm, func(), error) {
	form := model.ContactForm{
		Name:     f.name,
		Email:    f.email,
		Phone:    f.phone,
		Address:  f.address,
		Favorite: f.favorite,
	}
	if f.avatar == "" {
		return form, func() {}, nil
	}
	file, err := os.Open(f.avatar)
	if err != nil {
		return model.ContactForm{}, func() {}, fmt.Errorf("open avatar: %w", err)
	}
	form.AvatarName = filepath.Base(f.avatar)
	form.Avatar = file
	return form, func() { _ = file.Close() }, nil
}

func newCreateCmd(app *cli) *cobra.Command {
	flags := &formFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, closeAvatar, err := flags.form()
			if err != nil {
				return err
			}
			defer closeAvatar()
			data, err := app.svc.Create(cmd.Context(), form)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newUpdateCmd(app *cli) *cobra.Command {
	flags := &formFlags{}
	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Replace a contact's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, closeAvatar, err := flags.form()
			if err != nil {
				return err
			}
			defer closeAvatar()
			data, err := app.svc.Update(cmd.Context(), model.ContactID(args[0]), form)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newDeleteCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := app.svc.Delete(cmd.Context(), model.ContactID(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func newDeleteAllCmd(app *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all contacts without --yes")
			}
			data, err := app.svc.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all contacts")
	return cmd
}
