package main

import "service-booking-backend/internal/cli"

func main() {
	cli.Execute()
}
