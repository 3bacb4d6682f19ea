package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/tremor/engine/assets/loaders"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
	Modified   bool
}

// AssetManager indexes the asset directory and keeps the index current while
// files are added, rewritten or removed.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	am.root = filepath.Clean(assetsDir)
	if err := am.addRecursive(am.root); err != nil {
		return err
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeShader, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.TextureLoader{})

	am.wg.Add(1)
	go am.start()
	core.LogDebug("indexed %d assets under %s", am.Len(), am.root)
	return nil
}

// Close stops watching the asset directory.
func (am *AssetManager) Close() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.wg.Wait()
	return am.fsnotify.Close()
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Load an asset using the appropriate loader
func (am *AssetManager) LoadAsset(filename string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	var path string
	switch resourceType {
	case metadata.ResourceTypeShader:
		path = filepath.Join(am.root, "shaders", filename+".spv")
	case metadata.ResourceTypeImage:
		path = filepath.Join(am.root, "textures", filename)
	default:
		return nil, fmt.Errorf("unknown resource type %s", resourceType)
	}

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		// Load or reload asset from disk
		asset.LastLoaded = time.Now()
		asset.Modified = false
		am.assets[path] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", path)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Load(path, resourceType, params)
}

// LoadShader returns the SPIR-V words of the compiled shader name.
func (am *AssetManager) LoadShader(name string) ([]uint32, error) {
	res, err := am.LoadAsset(name, metadata.ResourceTypeShader, map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	return res.Data.([]uint32), nil
}

// LoadImage decodes the texture file name into RGBA pixels.
func (am *AssetManager) LoadImage(name string) (*metadata.ImageResourceData, error) {
	res, err := am.LoadAsset(name, metadata.ResourceTypeImage, nil)
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.ImageResourceData), nil
}

// Modified lists the assets rewritten on disk since they were last loaded.
func (am *AssetManager) Modified() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	var paths []string
	for path, info := range am.assets {
		if info.Modified {
			paths = append(paths, path)
		}
	}
	return paths
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name, false)
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name, true)
			}
			// Removed paths cannot be stat'ed; drop them from the index and the watch list.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath, false)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string, modified bool) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, exists := am.assets[path]
	if !exists {
		info = AssetInfo{Path: path, Type: assetType}
	} else if modified {
		core.LogDebug("asset %s modified", path)
	}
	info.Modified = exists && modified
	am.assets[path] = info
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp":
		return metadata.ResourceTypeImage
	default:
		return metadata.ResourceTypeNone
	}
}
