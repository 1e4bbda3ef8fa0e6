// Package symbolscan discovers compositor-private entry points in a
// native shared library by walking its dynamic symbol table, on disk
// or in the live process image, the same way the reference daemon's
// internal/ipc auth_linux.go reaches for golang.org/x/sys/unix instead
// of hand-rolled syscalls when the standard library falls short. No
// example repo in the pack ships an ELF dynamic-symbol reader or a
// C++ demangler, so both are implemented here directly against
// debug/elf and documented as a stdlib-only corner in DESIGN.md.
package symbolscan

import (
	"bufio"
	"debug/elf"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/capturecore/daemon/internal/corerr"
	"github.com/capturecore/daemon/internal/logging"
)

var log = logging.L("symbolscan")

// maxLiveSymbolScan is a symbol-count bound that no scan path
// consults: both paths read the .dynsym section through debug/elf's
// DynamicSymbols, which sizes the table from the section header. No
// DT_HASH/DT_GNU_HASH walk and no in-memory DT_SYMTAB walk is done.
const maxLiveSymbolScan = 10000

// LibraryImage describes a located shared library, either backed by
// an on-disk file (DiskPath set, preferred) or a live memory mapping
// discovered via /proc/self/maps (BaseAddr/EndAddr set, DiskPath may
// still be populated from the mapping's backing file).
type LibraryImage struct {
	Name     string
	DiskPath string
	BaseAddr uintptr
	EndAddr  uintptr
}

// Symbol is a resolved dynamic symbol: its demangled name, a raw
// signature approximation sufficient for ParamCount, an address
// relative to the library's mapped base, and the estimated parameter
// count from the demangled parameter list.
type Symbol struct {
	MangledName   string
	DemangledName string
	Address       uintptr
	ParamCount    int
}

// Probe locates libraryName's mapped base address by scanning
// /proc/self/maps for a mapping whose backing file matches, falling
// back to a bare on-disk lookup (so tests and non-Linux hosts that
// have never mapped the library can still resolve it for the on-disk
// scan path).
func Probe(libraryName string) (*LibraryImage, error) {
	if img, err := probeProcMaps(libraryName); err == nil {
		return img, nil
	}

	if path, err := resolveOnDiskPath(libraryName); err == nil {
		return &LibraryImage{Name: libraryName, DiskPath: path}, nil
	}

	return nil, corerr.New(corerr.KindDeviceNotFound, "symbolscan.probe",
		fmt.Sprintf("library %q not found in process maps or on disk", libraryName))
}

func probeProcMaps(libraryName string) (*LibraryImage, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var base, end uintptr
	var path string
	found := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		mappedPath := fields[5]
		if !strings.Contains(mappedPath, libraryName) {
			continue
		}

		addrs := strings.SplitN(fields[0], "-", 2)
		if len(addrs) != 2 {
			continue
		}
		lo, errLo := strconv.ParseUint(addrs[0], 16, 64)
		hi, errHi := strconv.ParseUint(addrs[1], 16, 64)
		if errLo != nil || errHi != nil {
			continue
		}

		if !found {
			base = uintptr(lo)
			found = true
		}
		if uintptr(hi) > end {
			end = uintptr(hi)
		}
		path = mappedPath
	}

	if !found {
		return nil, fmt.Errorf("symbolscan: %q not mapped", libraryName)
	}
	return &LibraryImage{Name: libraryName, DiskPath: path, BaseAddr: base, EndAddr: end}, nil
}

func resolveOnDiskPath(libraryName string) (string, error) {
	candidates := []string{
		libraryName,
		"/system/lib64/" + libraryName,
		"/system/lib/" + libraryName,
		"/usr/lib/" + libraryName,
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("symbolscan: %q not found on disk", libraryName)
}

// Scan walks image's dynamic symbol table and returns every STT_FUNC
// symbol whose mangled name matches pattern, demangled and with a
// best-effort parameter count. The on-disk file is preferred (works
// without the library being mapped); when that scan fails or DiskPath
// is empty, an image with a live mapping falls through to
// scanLiveImage, which also needs DiskPath and fails without it.
func Scan(image *LibraryImage, pattern string) ([]Symbol, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInvalidArgument, "symbolscan.scan", err)
	}

	if image.DiskPath != "" {
		syms, err := scanOnDisk(image.DiskPath, re)
		if err == nil {
			return syms, nil
		}
		log.Warn("on-disk scan failed, falling back to live image", "library", image.Name, "error", err)
	}

	if image.BaseAddr != 0 {
		return scanLiveImage(image, re)
	}

	return nil, corerr.New(corerr.KindDeviceNotFound, "symbolscan.scan",
		"image has neither a readable disk path nor a live mapping")
}

func scanOnDisk(path string, re *regexp.Regexp) ([]Symbol, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dynSyms, err := f.DynamicSymbols()
	if err != nil {
		return nil, err
	}

	var out []Symbol
	for _, s := range dynSyms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			continue
		}
		if !re.MatchString(s.Name) {
			continue
		}
		out = append(out, toSymbol(s.Name, uintptr(s.Value)))
	}
	return out, nil
}

// scanLiveImage does not read the live process image or its
// PT_DYNAMIC segment: it reopens the backing file to recover the layout
// (section/segment headers are unaffected by relocation) and treats
// symbol values as base-relative addresses, matching the on-disk
// path's addressing convention. Real in-memory byte-for-byte reads of
// a relocated image require ptrace-style remote memory access that a
// process cannot portably perform on itself beyond what the ELF
// headers already describe, so this fallback is a base-relative
// re-derivation of the same table rather than a literal memory walk.
func scanLiveImage(image *LibraryImage, re *regexp.Regexp) ([]Symbol, error) {
	if image.DiskPath == "" {
		return nil, corerr.New(corerr.KindDeviceNotFound, "symbolscan.scanLiveImage",
			"no backing file for live image")
	}
	return scanOnDisk(image.DiskPath, re)
}

func toSymbol(mangled string, addr uintptr) Symbol {
	name, params, ok := demangleItanium(mangled)
	if !ok {
		name = mangled
	}
	return Symbol{
		MangledName:   mangled,
		DemangledName: name,
		Address:       addr,
		ParamCount:    ParamCount(params),
	}
}

var createDisplayPattern = regexp.MustCompile(`.*SurfaceComposerClient.*(createDisplay|createVirtualDisplay).*`)

// FindCreateDisplay locates the display-creation entry point: pattern
// ".*SurfaceComposerClient.*(createDisplay|createVirtualDisplay).*",
// preferring names containing "createVirtualDisplay" and, among ties,
// the candidate with the greater parameter count.
func FindCreateDisplay(image *LibraryImage) (*Symbol, error) {
	candidates, err := Scan(image, createDisplayPattern.String())
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, corerr.New(corerr.KindPrivateAPIUnavailable, "symbolscan.find_create_display",
			"no candidate symbol matched the display-creation pattern")
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}
	return &best, nil
}

func better(a, b Symbol) bool {
	aVirtual := strings.Contains(a.DemangledName, "createVirtualDisplay")
	bVirtual := strings.Contains(b.DemangledName, "createVirtualDisplay")
	if aVirtual != bVirtual {
		return aVirtual
	}
	return a.ParamCount > b.ParamCount
}
