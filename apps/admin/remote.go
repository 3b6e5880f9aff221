package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
)

// connect saves the remote configuration read from `file`. The API picks it up on restart.
func (cli *commandLine) connect(file string) error {
	text, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrap(err, "reading configuration file")
	}
	rc, err := school.ParseRemoteConfig(string(text))
	if err != nil {
		return err
	}
	return school.SaveRemoteConfig(context.Background(), cli.local, rc)
}

func (cli *commandLine) disconnect() error {
	return school.ClearRemoteConfig(context.Background(), cli.local)
}

// export prints the whole school data document, as stored.
func (cli *commandLine) export() error {
	svc, err := cli.school(context.Background())
	if err != nil {
		return err
	}
	raw, err := school.Encode(svc.Current())
	if err != nil {
		return err
	}
	_, err = cli.out.Write(append(raw, '\n'))
	return err
}
