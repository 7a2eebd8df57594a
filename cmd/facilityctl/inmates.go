package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"facility/internal/facility"
)

// inmateFlags binds the optional inmate fields. Only flags the user set are
// sent.
type inmateFlags struct {
	name, cell, crime, sentence, legalStatus, facilityName, sex string
	age                                                         int
	images                                                      []string
}

func (f *inmateFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "inmate name")
	fs.StringVar(&f.cell, "cell", "", "cell")
	fs.StringVar(&f.crime, "crime", "", "crime")
	fs.StringVar(&f.sentence, "sentence", "", "sentence")
	fs.IntVar(&f.age, "age", 0, "age in years")
	fs.StringVar(&f.legalStatus, "legal-status", "", "legal status")
	fs.StringVar(&f.facilityName, "facility-name", "", "facility name")
	fs.StringVar(&f.sex, "sex", "", "sex (male or female)")
	fs.StringArrayVar(&f.images, "image", nil, "face image file; repeat for several")
}

func changedString(fs *pflag.FlagSet, name, v string) *string {
	if !fs.Changed(name) {
		return nil
	}
	return &v
}

func (f *inmateFlags) extraInfo(fs *pflag.FlagSet) *facility.ExtraInfo {
	info := &facility.ExtraInfo{
		Cell:         changedString(fs, "cell", f.cell),
		Crime:        changedString(fs, "crime", f.crime),
		Sentence:     changedString(fs, "sentence", f.sentence),
		LegalStatus:  changedString(fs, "legal-status", f.legalStatus),
		FacilityName: changedString(fs, "facility-name", f.facilityName),
		Sex:          changedString(fs, "sex", f.sex),
	}
	if fs.Changed("age") {
		age := f.age
		info.Age = &age
	}
	return info
}

func (f *inmateFlags) loadImages() ([]facility.Image, error) {
	images := make([]facility.Image, 0, len(f.images))
	for _, p := range f.images {
		img, err := facility.LoadImage(p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func inmatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inmates",
		Short: "List, create, update and delete inmates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all inmates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.client.Inmates.List(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return a.print(list)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <inmate-id>",
		Short: "Show one inmate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.client.Inmates.GetByID(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			return a.print(rec)
		},
	})

	var create inmateFlags
	createCmd := &cobra.Command{
		Use:   "create <inmate-id>",
		Short: "Enroll an inmate with one or more face images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			images, err := create.loadImages()
			if err != nil {
				return err
			}
			rec, err := a.client.Inmates.Create(cmd.Context(), facility.CreateInmateRequest{
				InmateID:  args[0],
				Name:      create.name,
				ExtraInfo: create.extraInfo(cmd.Flags()),
				Images:    images,
			})
			if err != nil {
				return explain(err)
			}
			return a.print(rec)
		},
	}
	create.register(createCmd.Flags())
	_ = createCmd.MarkFlagRequired("name")
	cmd.AddCommand(createCmd)

	var update inmateFlags
	updateCmd := &cobra.Command{
		Use:   "update <inmate-id>",
		Short: "Change only the given fields of an inmate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			images, err := update.loadImages()
			if err != nil {
				return err
			}
			rec, err := a.client.Inmates.Update(cmd.Context(), args[0], facility.UpdateInmateRequest{
				Name:      changedString(cmd.Flags(), "name", update.name),
				ExtraInfo: update.extraInfo(cmd.Flags()),
				Images:    images,
			})
			if err != nil {
				return explain(err)
			}
			return a.print(rec)
		},
	}
	update.register(updateCmd.Flags())
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <inmate-id>",
		Short: "Delete an inmate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Inmates.DeleteByInmateID(cmd.Context(), args[0]); err != nil {
				return explain(err)
			}
			return a.print(map[string]string{"deleted": args[0]})
		},
	})
	return cmd
}
