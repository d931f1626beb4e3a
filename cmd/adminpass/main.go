// Command adminpass prints a bcrypt hash for ADMIN_PASSWORD_HASH.  The
// password is read from the first line of stdin so it stays out of shell
// history.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/iliyamo/seat-hold/internal/config"
	"github.com/iliyamo/seat-hold/internal/utils"
)

// readPassword returns the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func main() {
	config.LoadDotEnv()
	cost := flag.Int("cost", config.AdminBcryptCost(), "bcrypt cost")
	flag.Parse()

	plain, err := readPassword(os.Stdin)
	if err != nil {
		log.Fatalf("adminpass: read password: %v", err)
	}
	hash, err := utils.HashAdminPassword(plain, *cost)
	if err != nil {
		log.Fatalf("adminpass: %v", err)
	}
	fmt.Println(hash)
}
