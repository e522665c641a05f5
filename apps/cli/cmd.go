package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/educloud"
	"github.com/trezcool/educloud/core"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotSignedIn = errors.New("not signed in")
)

type commandLine struct {
	sdk      *educloud.SDK
	conf     *core.Config
	validate *validator.Validate
	out      *printer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out.out, "Usage:")
	fmt.Fprintln(cli.out.out, "  login -email EMAIL [-school SCHOOL]           - sign in, the password is prompted")
	fmt.Fprintln(cli.out.out, "  logout                                        - sign out")
	fmt.Fprintln(cli.out.out, "  whoami                                        - show the signed in user")
	fmt.Fprintln(cli.out.out, "  tenant [-set SCHOOL] [-reset]                 - show or switch the current school")
	fmt.Fprintln(cli.out.out, "  students [-search S] [-class ID] [-page N]    - list students")
	fmt.Fprintln(cli.out.out, "  invoices [-status S] [-student ID]            - list invoices")
	fmt.Fprintln(cli.out.out, "  invoice-pdf -id ID [-o FILE]                  - download an invoice")
	fmt.Fprintln(cli.out.out, "  notifications [-unread] [-read-all]           - list notifications")
}

// Navigate tells the user what to do when the API sends them to the login or tenant-not-found route.
func (cli *commandLine) Navigate(route string) {
	switch route {
	case cli.conf.LoginRoute:
		cli.out.warn("Your session has expired. Run \"login\" to sign in again.")
	case cli.conf.TenantNotFoundRoute:
		cli.out.warn("This school does not exist. Check its name with \"tenant -set SCHOOL\".")
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out.errOut)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "login":
		loginCmd := cli.newFlagSet("login")
		loginSchool := loginCmd.String("school", "", "The school's name or subdomain. Defaults to the current school.")
		loginEmail := loginCmd.String("email", "", "The account's email. The password will be prompted next.")
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		email := core.CleanString(*loginEmail, true /* lower */)
		if err := cli.validate.Var(email, "email"); err != nil {
			return fmt.Errorf("invalid email %q", *loginEmail)
		}
		fmt.Fprint(cli.out.out, "Enter password:")
		pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
		fmt.Fprintln(cli.out.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginSchool, email, string(pwd))

	case "logout":
		return cli.logout(ctx)

	case "whoami":
		return cli.whoami(ctx)

	case "tenant":
		tenantCmd := cli.newFlagSet("tenant")
		tenantSet := tenantCmd.String("set", "", "The school to switch to.")
		tenantReset := tenantCmd.Bool("reset", false, "Forget the chosen school.")
		if err := tenantCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.tenant(*tenantSet, *tenantReset)

	case "students":
		studentsCmd := cli.newFlagSet("students")
		studentsSearch := studentsCmd.String("search", "", "Search by name or admission number.")
		studentsClass := studentsCmd.String("class", "", "Only list the students of a class.")
		studentsPage := studentsCmd.Int("page", 1, "The page to list.")
		studentsLimit := studentsCmd.Int("limit", 20, "The number of students per page.")
		if err := studentsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.students(ctx, *studentsSearch, *studentsClass, *studentsPage, *studentsLimit)

	case "invoices":
		invoicesCmd := cli.newFlagSet("invoices")
		invoicesStatus := invoicesCmd.String("status", "", "Only list invoices with this status.")
		invoicesStudent := invoicesCmd.String("student", "", "Only list the invoices of a student.")
		if err := invoicesCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.invoices(ctx, *invoicesStatus, *invoicesStudent)

	case "invoice-pdf":
		invoicePDFCmd := cli.newFlagSet("invoice-pdf")
		invoicePDFID := invoicePDFCmd.String("id", "", "The invoice to download.")
		invoicePDFOut := invoicePDFCmd.String("o", "", "The file name. Defaults to the one sent by the API.")
		if err := invoicePDFCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *invoicePDFID == "" {
			invoicePDFCmd.Usage()
			return errHelp
		}
		return cli.invoicePDF(ctx, *invoicePDFID, *invoicePDFOut)

	case "notifications":
		notificationsCmd := cli.newFlagSet("notifications")
		notificationsUnread := notificationsCmd.Bool("unread", false, "Only list unread notifications.")
		notificationsReadAll := notificationsCmd.Bool("read-all", false, "Mark every notification as read.")
		if err := notificationsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.notifications(ctx, *notificationsUnread, *notificationsReadAll)

	default:
		cli.printUsage()
		return errHelp
	}
}
