package main

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/spf13/cobra"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage clinic accounts",
	}

	var reg service.Registration
	addStaff := &cobra.Command{
		Use:   "add-staff",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			svc, err := buildServices(rt, nil)
			if err != nil {
				return err
			}

			user, err := svc.users.CreateStaff(ctx, reg)
			if err != nil {
				return errors.New(service.PublicMessage(err))
			}

			fmt.Printf("Staff account #%d created for %s\n", user.ID, user.Email)
			return nil
		},
	}
	addStaff.Flags().StringVar(&reg.Name, "name", "", "Full name")
	addStaff.Flags().StringVar(&reg.Email, "email", "", "Login email")
	addStaff.Flags().StringVar(&reg.Phone, "phone", "", "Contact phone")
	addStaff.Flags().StringVar(&reg.Password, "password", "", "Initial password")
	for _, name := range []string{"name", "email", "phone", "password"} {
		_ = addStaff.MarkFlagRequired(name)
	}

	cmd.AddCommand(addStaff)
	return cmd
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage the time slot catalog",
	}

	def := service.SlotDefinition{Capacity: 1}
	add := &cobra.Command{
		Use:   "add",
		Short: "Open a bookable time slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			svc, err := buildServices(rt, nil)
			if err != nil {
				return err
			}

			slot, err := svc.slots.CreateSlot(ctx, def)
			if err != nil {
				return errors.New(service.PublicMessage(err))
			}

			fmt.Printf("Slot #%d: %s %s-%s, capacity %d\n",
				slot.ID, slot.Date.Format("2006-01-02"), slot.StartTime, slot.EndTime, slot.Capacity)
			return nil
		},
	}
	add.Flags().StringVar(&def.Date, "date", "", "Slot date, YYYY-MM-DD")
	add.Flags().StringVar(&def.Start, "start", "", "Start time, HH:MM")
	add.Flags().StringVar(&def.End, "end", "", "End time, HH:MM")
	add.Flags().IntVar(&def.Capacity, "capacity", 1, "Number of patients per slot")
	for _, name := range []string{"date", "start", "end"} {
		_ = add.MarkFlagRequired(name)
	}

	cmd.AddCommand(add)
	return cmd
}
