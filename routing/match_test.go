/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package routing_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/zenohd/zenohd/routing"
)

var _ = Describe("Intersect", func() {
	DescribeTable("resource-name wildcard matching",
		func(a, b string, want bool) {
			Expect(routing.Intersect(a, b)).To(Equal(want))
			Expect(routing.Intersect(b, a)).To(Equal(want), "must be symmetric")
		},
		Entry("identical literal paths", "/a/b/c", "/a/b/c", true),
		Entry("differing literal paths", "/a/b/c", "/a/b/d", false),
		Entry("single-chunk wildcard", "/a/*/c", "/a/b/c", true),
		Entry("single-chunk wildcard, longer chunk", "/a/*/c", "/a/bb/c", true),
		Entry("single-chunk wildcard, no match", "/a/*/c", "/a/b/d", false),
		Entry("double wildcard matches a longer suffix", "/a/**", "/a/b/c/d", true),
		Entry("double wildcard matches zero chunks", "/a/**", "/a", true),
		Entry("double wildcard matches everything", "/**", "/anything/at/all", true),
		Entry("double wildcard in the middle", "/a/**/z", "/a/x/y/z", true),
		Entry("double wildcard collapsing to zero chunks mid-path", "/a/**/z", "/a/z", true),
		Entry("double wildcard, wrong tail", "/a/**/z", "/a/x/y/w", false),
		Entry("within-chunk wildcard as infix", "/a/b*c/d", "/a/bXXXc/d", true),
		Entry("within-chunk wildcard, missing required suffix", "/a/b*c/d", "/a/bXXX/d", false),
	)
})
