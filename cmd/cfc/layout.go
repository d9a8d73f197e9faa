package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chazu/cfc/dispatch"
	"github.com/chazu/cfc/dumpable"
	"github.com/chazu/cfc/layout"
)

type slotView struct {
	Offset   int    `yaml:"offset"`
	Name     string `yaml:"name"`
	Impl     string `yaml:"impl"`
	Abstract bool   `yaml:"abstract,omitempty"`
	Fresh    bool   `yaml:"fresh,omitempty"`
	Novel    bool   `yaml:"novel,omitempty"`
}

type tableView struct {
	Class    string     `yaml:"class"`
	Parent   string     `yaml:"parent,omitempty"`
	Included bool       `yaml:"included,omitempty"`
	Slots    []slotView `yaml:"slots"`
}

func viewTable(t *layout.Table) tableView {
	v := tableView{Class: t.Class.Name, Included: t.Class.Included}
	if t.Parent != nil {
		v.Parent = t.Parent.Class.Name
	}
	for _, s := range t.Slots {
		v.Slots = append(v.Slots, slotView{
			Offset: s.Offset, Name: s.Name, Impl: s.Impl,
			Abstract: s.Abstract, Fresh: s.Fresh, Novel: s.Novel,
		})
	}
	return v
}

func layoutCmd(dir *string) *cobra.Command {
	var format string
	var all bool

	c := &cobra.Command{
		Use:   "layout [class...]",
		Short: "Print dispatch table layouts after Dump/Load synthesis",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(*dir)
			if err != nil {
				return err
			}
			abi, err := p.manifest.ABI()
			if err != nil {
				return err
			}
			res, err := dumpable.Synthesizer{Protocol: dispatch.New(abi)}.Synthesize(p.hierarchy)
			if err != nil {
				return err
			}
			lay, err := layout.Generator{ABI: abi}.Compute(res.Hierarchy)
			if err != nil {
				return err
			}

			var views []tableView
			if len(args) > 0 {
				for _, name := range args {
					t := lay.Table(name)
					if t == nil {
						return fmt.Errorf("no class %q", name)
					}
					views = append(views, viewTable(t))
				}
			} else {
				for _, t := range lay.Tables() {
					if t.Class.Included && !all {
						continue
					}
					views = append(views, viewTable(t))
				}
			}

			switch format {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(views); err != nil {
					return err
				}
				return enc.Close()
			case "text":
				writeTables(cmd.OutOrStdout(), views)
				return nil
			}
			return fmt.Errorf("unknown format %q (want text or yaml)", format)
		},
	}

	c.Flags().StringVar(&format, "format", "text", "output format: text or yaml")
	c.Flags().BoolVarP(&all, "all", "a", false, "include classes from other parcels")
	return c
}

func writeTables(w io.Writer, views []tableView) {
	for _, v := range views {
		if v.Parent != "" {
			fmt.Fprintf(w, "%s < %s\n", v.Class, v.Parent)
		} else {
			fmt.Fprintf(w, "%s\n", v.Class)
		}
		for _, s := range v.Slots {
			mark := ""
			switch {
			case s.Abstract:
				mark = " abstract"
			case s.Novel:
				mark = " novel"
			case s.Fresh:
				mark = " override"
			}
			fmt.Fprintf(w, "  %4d  %-16s %s%s\n", s.Offset, s.Name, s.Impl, mark)
		}
		fmt.Fprintln(w)
	}
}
