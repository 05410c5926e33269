package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/drivehub/internal/client"
	"github.com/alfredjeanlab/drivehub/internal/model"
	"github.com/alfredjeanlab/drivehub/internal/router"
	"github.com/spf13/cobra"
)

var carsCmd = &cobra.Command{
	Use:     "cars",
	Short:   "Browse the fleet",
	GroupID: "cars",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		search, _ := cmd.Flags().GetString("search")
		sortBy, _ := cmd.Flags().GetString("sort")
		availableOnly, _ := cmd.Flags().GetBool("available")

		sort := model.CarSort(sortBy)
		if !sort.IsValid() {
			return fmt.Errorf("unknown sort %q (want one of %s)", sortBy, joinSorts())
		}
		if err := requireView(ctx, router.PathClient, openSession(ctx)); err != nil {
			return err
		}

		cars, err := api.ListCars(ctx)
		if err != nil {
			return fmt.Errorf("listing cars: %w", err)
		}
		cars = model.FilterCars(cars, search, sort)
		if availableOnly {
			cars = availableCars(cars)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), cars)
		}
		printCarTable(cmd.OutOrStdout(), cars)
		return nil
	},
}

func availableCars(cars []model.Car) []model.Car {
	out := cars[:0:0]
	for _, c := range cars {
		if c.Available {
			out = append(out, c)
		}
	}
	return out
}

func joinSorts() string {
	names := make([]string, 0, 3)
	for _, s := range model.CarSorts() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

var bookCmd = &cobra.Command{
	Use:     "book",
	Short:   "Book a car for the signed-in user",
	GroupID: "cars",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		carID, _ := cmd.Flags().GetInt64("car")
		startFlag, _ := cmd.Flags().GetString("start")
		endFlag, _ := cmd.Flags().GetString("end")

		sess := openSession(ctx)
		if err := requireView(ctx, router.PathClientBookings, sess); err != nil {
			return err
		}
		id, _ := sess.Identity()

		start, err := model.ParseDate(startFlag)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		end, err := model.ParseDate(endFlag)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}

		car, err := api.GetCar(ctx, carID)
		if err != nil {
			return fmt.Errorf("loading car %d: %w", carID, err)
		}
		rental := model.Rental{UserID: id.ID, CarID: carID, StartDate: start, EndDate: end}
		if err := model.ValidateBooking(&rental, car); err != nil {
			return err
		}

		created, err := api.CreateRental(ctx, client.CreateRentalRequest{
			UserID:    id.ID,
			CarID:     carID,
			StartDate: start,
			EndDate:   end,
		})
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
				return errors.New("the rental service rejected the session: run drivehub login")
			}
			return fmt.Errorf("creating booking: %w", err)
		}
		if created.TotalPrice == 0 {
			created.TotalPrice = model.QuoteTotal(start, end, car.PricePerDay)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), created)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Booked %s from %s to %s for $%.2f (booking #%d, %s)\n",
			car.Title(), start, end, created.TotalPrice, created.ID, created.Status)
		return nil
	},
}

func init() {
	carsCmd.Flags().String("search", "", "match brand or model (case-insensitive)")
	carsCmd.Flags().String("sort", "", "order: "+joinSorts())
	carsCmd.Flags().Bool("available", false, "only list cars that can be booked")

	bookCmd.Flags().Int64("car", 0, "car id (required)")
	bookCmd.Flags().String("start", "", "first day, YYYY-MM-DD (required)")
	bookCmd.Flags().String("end", "", "last day, YYYY-MM-DD (required)")
	_ = bookCmd.MarkFlagRequired("car")
	_ = bookCmd.MarkFlagRequired("start")
	_ = bookCmd.MarkFlagRequired("end")
}
