// One-off: go run scripts/genhash.go [password] [cost]
// Prints a bcrypt hash as stored in users.password_hash.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AviRoy1988/receipe-api/internal/service"
)

func main() {
	password := "adminpass"
	if len(os.Args) > 1 {
		password = os.Args[1]
	}
	cost := 10
	if len(os.Args) > 2 {
		c, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "cost: %v\n", err)
			os.Exit(2)
		}
		cost = c
	}
	h, err := service.NewUserService(nil, nil, cost).HashPassword(password)
	if err != nil {
		panic(err)
	}
	fmt.Print(h)
}
