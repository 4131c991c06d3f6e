package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/mentorship"
	"github.com/trezcool/cohort/core/season"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	db        *sqlx.DB
	validate  *validator.Validate
	memberSvc *member.Service
	router    *mentorship.Router
	seasonSvc *season.Service
	out       io.Writer
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	out := cli.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)\n")
	cli.printf("  addmember -name NAME -role ROLE [-username USERNAME] [-email EMAIL] [-campus CODE -floor N] - add a member\n")
	cli.printf("  resetpassword -username USERNAME|EMAIL - reset a member's password\n")
	cli.printf("  assignmentors -campus CODE -floor N [-force] [-notify] - assign the students of a floor to its mentors\n")
	cli.printf("  recalculate -student ID | -all - recalculate legacy scores\n")
}

// promptPassword reads a password without echo; an empty password is a usage error.
func (cli *commandLine) promptPassword(fs *flag.FlagSet, prompt string) (string, error) {
	cli.printf("%s:", prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addMemberCmd := flag.NewFlagSet("addmember", flag.ExitOnError)
	addMemberName := addMemberCmd.String("name", "", "The member's full name.")
	addMemberUname := addMemberCmd.String("username", "", "The member's username. One of username or email is required.")
	addMemberEmail := addMemberCmd.String("email", "", "The member's email.")
	addMemberRole := addMemberCmd.String("role", "", "One of student, mentor, floor_staff or admin.")
	addMemberCampus := addMemberCmd.String("campus", "", "The campus code, except for admins.")
	addMemberFloor := addMemberCmd.Int("floor", 0, "The campus floor, except for admins.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The member's username or email. The password will be prompted next.")

	assignCmd := flag.NewFlagSet("assignmentors", flag.ExitOnError)
	assignCampus := assignCmd.String("campus", "", "The campus code.")
	assignFloor := assignCmd.Int("floor", 0, "The campus floor.")
	assignForce := assignCmd.Bool("force", false, "Reassign every student of the floor.")
	assignNotify := assignCmd.Bool("notify", false, "Email the newly assigned students.")

	recalculateCmd := flag.NewFlagSet("recalculate", flag.ExitOnError)
	recalculateStudent := recalculateCmd.String("student", "", "The student's ID.")
	recalculateAll := recalculateCmd.Bool("all", false, "Recalculate every student.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addmember":
		if err := addMemberCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addMemberName == "" || *addMemberRole == "" || (*addMemberUname == "" && *addMemberEmail == "") {
			addMemberCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addMemberCmd, "Enter password")
		if err != nil {
			return err
		}
		return cli.addMember(member.NewMember{
			Name:            *addMemberName,
			Username:        *addMemberUname,
			Email:           *addMemberEmail,
			Role:            *addMemberRole,
			Campus:          *addMemberCampus,
			Floor:           *addMemberFloor,
			Password:        pwd,
			PasswordConfirm: pwd,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd, "Enter password")
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "assignmentors":
		if err := assignCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *assignCampus == "" || *assignFloor < 1 {
			assignCmd.Usage()
			return errHelp
		}
		return cli.assignMentors(*assignCampus, *assignFloor, *assignForce, *assignNotify)

	case "recalculate":
		if err := recalculateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if (*recalculateStudent == "") == !*recalculateAll {
			recalculateCmd.Usage()
			return errHelp
		}
		return cli.recalculate(*recalculateStudent)

	default:
		cli.printUsage()
		return errHelp
	}
}
