package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fulldump/goconfig"
	json2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/fulldump/flatfile/configuration"
	"github.com/fulldump/flatfile/database"
	"github.com/fulldump/flatfile/linefile"
	"github.com/fulldump/flatfile/slotfile"
	"github.com/fulldump/flatfile/utils"
)

var VERSION = "dev"

var banner = `
  __ _       _    __ _ _
 / _| | __ _| |_ / _(_) | ___
| |_| |/ _` + "`" + ` | __| |_| | |/ _ \
|  _| | (_| | |_|  _| | |  __/
|_| |_|\__,_|\__|_| |_|_|\___|
                 version ` + VERSION + `
`

func main() {

	c := configuration.Default()
	goconfig.Read(&c)

	if c.Version {
		fmt.Println("Version:", VERSION)
		return
	}

	if c.ShowConfig {
		json2.MarshalWrite(os.Stdout, c, jsontext.WithIndent("    "))
		fmt.Println()
	}

	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:   level,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	fmt.Println(banner)

	fixed, err := slotfile.Open(c.FixedFile, &FixedUser{})
	if err != nil {
		slog.Error("open fixed store", "file", c.FixedFile, "error", err)
		os.Exit(1)
	}
	defer fixed.Close()

	registry, err := linefile.NewRegistry(&TextUser{}, &TextAccount{})
	if err != nil {
		slog.Error("build registry", "error", err)
		os.Exit(1)
	}

	db := database.NewDatabase(&database.Config{
		Dir:      c.Dir,
		Registry: registry,
	})
	if err := db.Load(); err != nil {
		slog.Error("load database", "dir", c.Dir, "error", err)
		os.Exit(1)
	}
	defer db.Stop()

	text, err := db.GetStore("records")
	if err != nil {
		slog.Error("open text store", "error", err)
		os.Exit(1)
	}

	run(bufio.NewScanner(os.Stdin), fixed, text)
}

var menu = `
 1) fixed: save user
 2) fixed: find user by id
 3) fixed: list users
 4) fixed: delete user by id
 5) fixed: count
 6) text: save user
 7) text: save account
 8) text: find by name
 9) text: list records
10) text: delete by id
11) text: range by id
 0) exit
`

func run(in *bufio.Scanner, fixed *slotfile.Store[*FixedUser], text *linefile.Store) {

	for {
		fmt.Println(menu)

		var err error
		switch prompt(in, "option") {
		case "1":
			err = fixedSave(in, fixed)
		case "2":
			err = fixedFind(in, fixed)
		case "3":
			err = fixedList(fixed)
		case "4":
			err = fixed.DeleteByID(prompt(in, "id"))
		case "5":
			var n int
			if n, err = fixed.Count(); err == nil {
				fmt.Println(n, "users")
			}
		case "6":
			err = textSaveUser(in, text)
		case "7":
			err = textSaveAccount(in, text)
		case "8":
			err = textFindByName(in, text)
		case "9":
			err = textList(text)
		case "10":
			err = text.DeleteByID(prompt(in, "id"))
		case "11":
			err = textRange(in, text)
		case "0", "":
			return
		default:
			fmt.Println("unknown option")
		}

		if err != nil {
			slog.Error("operation failed", "error", err)
		}
	}
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label + ": ")
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

// promptID fills in a fresh uuid when the user leaves the id blank.
func promptID(in *bufio.Scanner) string {
	id := prompt(in, "id (blank for a new one)")
	if id == "" {
		id = uuid.New().String()
		fmt.Println("id:", id)
	}
	return id
}

func promptAge(in *bufio.Scanner) (int64, error) {
	raw := prompt(in, "age")
	age, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("age %q is not an integer", raw)
	}
	return age, nil
}

func printRecord(r interface{}) {
	out, err := json2.Marshal(r)
	if err != nil {
		slog.Error("print record", "error", err)
		return
	}
	fmt.Println(string(out))
}

func fixedSave(in *bufio.Scanner, fixed *slotfile.Store[*FixedUser]) error {
	u := &FixedUser{Id: promptID(in), Name: prompt(in, "name")}
	age, err := promptAge(in)
	if err != nil {
		return err
	}
	u.Age = age
	return fixed.Save(u)
}

func fixedFind(in *bufio.Scanner, fixed *slotfile.Store[*FixedUser]) error {
	u, found, err := fixed.FindByID(prompt(in, "id"))
	if err != nil {
		return err
	}
	if !found {
		fmt.Println("not found")
		return nil
	}
	printRecord(u)
	return nil
}

func fixedList(fixed *slotfile.Store[*FixedUser]) error {
	users, err := fixed.FindAll()
	if err != nil {
		return err
	}
	for _, u := range users {
		printRecord(u)
	}
	fmt.Println(len(users), "users")
	return nil
}

func textSaveUser(in *bufio.Scanner, text *linefile.Store) error {
	fields := map[string]interface{}{
		"id":   promptID(in),
		"name": prompt(in, "name"),
	}
	age, err := promptAge(in)
	if err != nil {
		return err
	}
	fields["age"] = age

	u := &TextUser{}
	if err := utils.Remarshal(fields, u); err != nil {
		return err
	}
	return text.Save(u)
}

func textSaveAccount(in *bufio.Scanner, text *linefile.Store) error {
	a := &TextAccount{
		Id:       promptID(in),
		Name:     prompt(in, "name"),
		Password: prompt(in, "password"),
	}
	return text.Save(a)
}

func textFindByName(in *bufio.Scanner, text *linefile.Store) error {
	records, err := text.FindBy(map[string]interface{}{
		"name": prompt(in, "name"),
	})
	if err != nil {
		return err
	}
	for _, r := range records {
		printRecord(r)
	}
	fmt.Println(len(records), "records")
	return nil
}

func textList(text *linefile.Store) error {
	records, err := text.FindAll()
	if err != nil {
		return err
	}
	for _, r := range records {
		printRecord(r)
	}
	fmt.Println(len(records), "records")
	return nil
}

func textRange(in *bufio.Scanner, text *linefile.Store) error {
	from := prompt(in, "from id")
	to := prompt(in, "to id (exclusive, blank for open end)")
	records, err := text.FindRange(from, to)
	if err != nil {
		return err
	}
	for _, r := range records {
		printRecord(r)
	}
	fmt.Println(len(records), "records")
	return nil
}
