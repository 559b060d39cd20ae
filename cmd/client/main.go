package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/atinyakov/cardkeeper/internal/client"
	"github.com/atinyakov/cardkeeper/internal/models"
)

var (
	version   string
	buildDate string
)

// main parses command-line flags and dispatches to the create, vcard or package commands.
func main() {
	var (
		cmd     string
		baseURL string
		caFile  string
		id      int64
		out     string
		showVer bool
		form    models.CardForm
		files   client.Files
	)

	flag.StringVar(&cmd, "cmd", "", "command: create | vcard | package")
	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&caFile, "ca", "", "path to CA cert for HTTPS servers")
	flag.Int64Var(&id, "id", 0, "card id for vcard and package")
	flag.StringVar(&out, "o", "", "output file (default: stdout)")
	flag.BoolVar(&showVer, "version", false, "show build version and date")

	flag.StringVar(&form.FirstName, "fname", "", "first name")
	flag.StringVar(&form.LastName, "lname", "", "last name")
	flag.StringVar(&form.Pronouns, "pronouns", "", "gender pronouns")
	flag.StringVar(&form.Title, "title", "", "job title")
	flag.StringVar(&form.Business, "biz", "", "business name")
	flag.StringVar(&form.Address, "addr", "", "business address")
	flag.StringVar(&form.Description, "desc", "", "business description (markdown)")
	flag.StringVar(&form.PublicKey, "key", "", "OpenPGP public key")
	flag.StringVar(&form.Tracker, "tracker", "", "tracking code snippet")
	flag.StringVar(&form.FontLink, "font-link", "", "web font embed code")
	flag.StringVar(&form.FontCSS, "font-css", "", "web font CSS rule")
	flag.StringVar(&form.HostedURL, "hosted-url", "", "hosted card URL")
	flag.StringVar(&form.Phone, "phone", "", "phone number")
	flag.StringVar(&form.Email, "email", "", "email address")
	flag.BoolVar(&form.FooterCredit, "footer-credit", false, "enable footer credit")
	flag.StringVar(&files.Logo, "logo", "", "logo image path")
	flag.StringVar(&files.Photo, "photo", "", "profile photo path")
	flag.StringVar(&files.Cover, "cover", "", "cover photo path")
	flag.Parse()

	if showVer {
		fmt.Printf("CardKeeper Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	httpClient, err := client.NewHTTPClient(caFile)
	if err != nil {
		log.Fatal(err)
	}
	c := client.New(baseURL, httpClient)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch cmd {
	case "create":
		cardURL, err := c.CreateCard(ctx, form, files)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(cardURL)
	case "vcard", "package":
		if id <= 0 {
			log.Fatal("please provide -id=<card id>")
		}
		w, closeOut, err := output(out)
		if err != nil {
			log.Fatal(err)
		}
		if cmd == "vcard" {
			err = c.DownloadVCard(ctx, id, w)
		} else {
			err = c.DownloadPackage(ctx, id, w)
		}
		if cerr := closeOut(); err == nil {
			err = cerr
		}
		if err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("unknown command: %s", cmd)
	}
}

func output(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
